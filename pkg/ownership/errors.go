package ownership

import "errors"

var (
	// ErrTraversal indicates the snapshot walk failed or its sink reported
	// a downstream failure. Fatal: the run aborts with no output.
	ErrTraversal = errors.New("snapshot traversal failed")

	// ErrProtocolViolation indicates the pipeline broke one of its own
	// invariants (duplicate count, closed channel, overcounted results).
	// Always fatal; never tolerated silently.
	ErrProtocolViolation = errors.New("pipeline protocol violation")
)
