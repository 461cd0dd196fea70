// Package ownership computes per-author line ownership across every blob of
// a repository snapshot. A producer walks the snapshot tree, a pool of
// workers blames one file at a time, and a single accumulator folds the
// per-file attributions into a global tally with a counting termination
// protocol and cooperative cancellation.
package ownership

import (
	"context"
	"iter"
	"sort"
)

// WorkItem identifies one blob to blame, by path relative to the snapshot
// root. Created by the walker and consumed by exactly one worker.
type WorkItem struct {
	Path string
}

// AttributionMap maps an author key to the number of lines owned in a
// single file. Immutable once produced by the oracle.
type AttributionMap map[string]int

// Source yields the work items of one snapshot as a lazy, finite,
// single-use sequence. A non-nil error element aborts the traversal.
type Source interface {
	Items() iter.Seq2[WorkItem, error]
}

// Oracle computes the attribution map for one work item.
type Oracle interface {
	Blame(ctx context.Context, item WorkItem) (AttributionMap, error)
}

// Tally accumulates line ownership per author across files. It has exactly
// one writer (the accumulator) and is never read concurrently.
type Tally map[string]int

// Fold merges one per-file attribution into the tally. The fold is
// commutative and associative, so delivery order never affects the result.
func (t Tally) Fold(attribution AttributionMap) {
	for author, lines := range attribution {
		t[author] += lines
	}
}

// AuthorLines is one row of the final ranking.
type AuthorLines struct {
	Author string
	Lines  int
}

// Ranking returns the tally as a sorted slice: lines descending, ties
// broken by author ascending for determinism.
func (t Tally) Ranking() []AuthorLines {
	ranking := make([]AuthorLines, 0, len(t))

	for author, lines := range t {
		ranking = append(ranking, AuthorLines{Author: author, Lines: lines})
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Lines != ranking[j].Lines {
			return ranking[i].Lines > ranking[j].Lines
		}

		return ranking[i].Author < ranking[j].Author
	})

	return ranking
}
