package ownership_test

import (
	"context"
	"errors"
	"iter"
	"maps"
	"sync"

	"github.com/Sumatoshi-tech/blametally/pkg/ownership"
)

// fakeSource yields a fixed item list, optionally failing after a prefix.
type fakeSource struct {
	items     []ownership.WorkItem
	failAfter int // -1 means never fail
	err       error
}

func sourceOf(paths ...string) *fakeSource {
	items := make([]ownership.WorkItem, len(paths))
	for i, path := range paths {
		items[i] = ownership.WorkItem{Path: path}
	}

	return &fakeSource{items: items, failAfter: -1}
}

func (s *fakeSource) Items() iter.Seq2[ownership.WorkItem, error] {
	return func(yield func(ownership.WorkItem, error) bool) {
		for i, item := range s.items {
			if s.failAfter >= 0 && i == s.failAfter {
				yield(item, s.err)

				return
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

var errBlameFailed = errors.New("unreadable blob")

// fakeOracle serves canned attributions and records which paths it saw.
type fakeOracle struct {
	attributions map[string]ownership.AttributionMap
	failPaths    map[string]bool
	block        chan struct{} // if non-nil, Blame waits for ctx or a signal

	mu   sync.Mutex
	seen []string
}

func (o *fakeOracle) Blame(ctx context.Context, item ownership.WorkItem) (ownership.AttributionMap, error) {
	if o.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-o.block:
		}
	}

	o.mu.Lock()
	o.seen = append(o.seen, item.Path)
	o.mu.Unlock()

	if o.failPaths[item.Path] {
		return nil, errBlameFailed
	}

	// Hand out a copy: attribution maps are immutable once produced.
	return maps.Clone(o.attributions[item.Path]), nil
}

func (o *fakeOracle) seenPaths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.seen...)
}

// threeFileScenario is the canonical fixture: A:{alice:10}, B:{bob:5,
// alice:2}, C:{alice:1} must rank alice 13 before bob 5.
func threeFileScenario() (*fakeSource, *fakeOracle) {
	source := sourceOf("A", "B", "C")
	oracle := &fakeOracle{
		attributions: map[string]ownership.AttributionMap{
			"A": {"alice": 10},
			"B": {"bob": 5, "alice": 2},
			"C": {"alice": 1},
		},
	}

	return source, oracle
}
