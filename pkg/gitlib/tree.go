package gitlib

import (
	"fmt"
	"iter"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// BlobEntry is one file entry discovered during a tree walk, identified by
// its full path relative to the tree root.
type BlobEntry struct {
	Path string
	Hash Hash
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// EntryCount returns the number of entries at the top level of the tree.
func (t *Tree) EntryCount() uint64 {
	return t.tree.EntryCount()
}

// WalkBlobs yields every blob entry under the tree in deterministic
// pre-order, with its full relative path. The sequence is lazy and
// single-use. Subtrees are looked up on demand and freed after descent;
// entries that are neither blobs nor trees (e.g. submodules) are skipped.
// A lookup failure is yielded as the final element's error.
func (t *Tree) WalkBlobs() iter.Seq2[BlobEntry, error] {
	return func(yield func(BlobEntry, error) bool) {
		t.walkBlobs("", yield)
	}
}

// walkBlobs reports false once the consumer stopped the iteration.
func (t *Tree) walkBlobs(prefix string, yield func(BlobEntry, error) bool) bool {
	count := t.tree.EntryCount()

	for i := uint64(0); i < count; i++ {
		entry := t.tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		name := joinTreePath(prefix, entry.Name)

		switch entry.Type {
		case git2go.ObjectBlob:
			if !yield(BlobEntry{Path: name, Hash: HashFromOid(entry.Id)}, nil) {
				return false
			}
		case git2go.ObjectTree:
			sub, err := t.repo.LookupTree(HashFromOid(entry.Id))
			if err != nil {
				yield(BlobEntry{Path: name}, fmt.Errorf("descend into %s: %w", name, err))

				return false
			}

			descended := sub.walkBlobs(name, yield)
			sub.Free()

			if !descended {
				return false
			}
		default:
			// Submodule commits and other entry kinds are not files.
		}
	}

	return true
}

func joinTreePath(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}

// Native returns the underlying libgit2 tree.
func (t *Tree) Native() *git2go.Tree {
	return t.tree
}
