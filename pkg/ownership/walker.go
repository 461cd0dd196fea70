package ownership

import (
	"fmt"
)

// Walker drives one snapshot traversal, delivering each discovered work
// item to a sink and threading the emitted count through explicitly.
type Walker struct {
	source Source
}

// NewWalker returns a walker over the given source.
func NewWalker(source Source) *Walker {
	return &Walker{source: source}
}

// Walk consumes the source sequence in order, calling sink for every item.
// It returns the number of items delivered. A source error or a sink
// failure aborts the traversal; items already delivered remain valid, and
// the returned count tells the caller how many the accumulator would still
// have to observe.
func (w *Walker) Walk(sink func(WorkItem) error) (int, error) {
	emitted := 0

	for item, err := range w.source.Items() {
		if err != nil {
			return emitted, fmt.Errorf("%w: %w", ErrTraversal, err)
		}

		sinkErr := sink(item)
		if sinkErr != nil {
			return emitted, fmt.Errorf("%w: deliver %s: %w", ErrTraversal, item.Path, sinkErr)
		}

		emitted++
	}

	return emitted, nil
}
