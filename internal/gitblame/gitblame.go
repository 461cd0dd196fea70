// Package gitblame adapts a libgit2 repository to the ownership pipeline's
// Source and Oracle contracts.
package gitblame

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/Sumatoshi-tech/blametally/pkg/gitlib"
	"github.com/Sumatoshi-tech/blametally/pkg/identity"
	"github.com/Sumatoshi-tech/blametally/pkg/ownership"
)

// Source walks the blobs of one tree in pre-order.
type Source struct {
	tree *gitlib.Tree
}

// NewSource returns a source over the given tree. The tree must stay alive
// (not freed) until the sequence is consumed.
func NewSource(tree *gitlib.Tree) *Source {
	return &Source{tree: tree}
}

// Items yields one work item per blob, lazily and in deterministic
// pre-order.
func (s *Source) Items() iter.Seq2[ownership.WorkItem, error] {
	return func(yield func(ownership.WorkItem, error) bool) {
		for entry, err := range s.tree.WalkBlobs() {
			if !yield(ownership.WorkItem{Path: entry.Path}, err) {
				return
			}
		}
	}
}

// Oracle blames files at HEAD. libgit2 repository handles are not safe for
// concurrent use, so the oracle maintains one handle per concurrent caller
// and reuses them across items.
type Oracle struct {
	path string

	mu      sync.Mutex
	idle    []*gitlib.Repository
	handles []*gitlib.Repository
}

// NewOracle returns an oracle for the repository at path. Handles are
// opened lazily on first use per concurrent caller.
func NewOracle(path string) *Oracle {
	return &Oracle{path: path}
}

// Blame attributes every line of the item to the author that last touched
// it, keyed by normalized identity.
func (o *Oracle) Blame(_ context.Context, item ownership.WorkItem) (ownership.AttributionMap, error) {
	repo, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer o.release(repo)

	hunks, err := repo.BlameFile(item.Path)
	if err != nil {
		return nil, err
	}

	attribution := make(ownership.AttributionMap, len(hunks))
	for _, hunk := range hunks {
		attribution[identity.Key(hunk.Author)] += hunk.Lines
	}

	return attribution, nil
}

// Close frees every repository handle the oracle opened.
func (o *Oracle) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, repo := range o.handles {
		repo.Free()
	}

	o.handles = nil
	o.idle = nil
}

func (o *Oracle) acquire() (*gitlib.Repository, error) {
	o.mu.Lock()

	if n := len(o.idle); n > 0 {
		repo := o.idle[n-1]
		o.idle = o.idle[:n-1]
		o.mu.Unlock()

		return repo, nil
	}

	o.mu.Unlock()

	repo, err := gitlib.OpenRepository(o.path)
	if err != nil {
		return nil, fmt.Errorf("open blame handle: %w", err)
	}

	o.mu.Lock()
	o.handles = append(o.handles, repo)
	o.mu.Unlock()

	return repo, nil
}

func (o *Oracle) release(repo *gitlib.Repository) {
	o.mu.Lock()
	o.idle = append(o.idle, repo)
	o.mu.Unlock()
}
