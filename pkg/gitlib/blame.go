package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// BlameHunk attributes a contiguous run of lines to the signature that last
// touched them.
type BlameHunk struct {
	Lines  int
	Author Signature
}

// BlameFile blames a single file at HEAD and returns one hunk per
// contiguous attribution run. Fails for untracked, unreadable, or binary
// paths. Hunks with no final signature (e.g. boundary commits outside the
// blame range) carry a zero-value Author.
func (r *Repository) BlameFile(path string) ([]BlameHunk, error) {
	opts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("get blame options: %w", err)
	}

	blame, err := r.repo.BlameFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", path, err)
	}
	defer func() { _ = blame.Free() }()

	hunkCount := blame.HunkCount()
	hunks := make([]BlameHunk, 0, hunkCount)

	for i := 0; i < hunkCount; i++ {
		hunk, hunkErr := blame.HunkByIndex(i)
		if hunkErr != nil {
			return nil, fmt.Errorf("blame hunk %d of %s: %w", i, path, hunkErr)
		}

		out := BlameHunk{Lines: int(hunk.LinesInHunk)}

		if hunk.FinalSignature != nil {
			out.Author = Signature{
				Name:  hunk.FinalSignature.Name,
				Email: hunk.FinalSignature.Email,
				When:  hunk.FinalSignature.When,
			}
		}

		hunks = append(hunks, out)
	}

	return hunks, nil
}
