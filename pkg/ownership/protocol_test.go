package ownership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOracle returns a fixed attribution for every item.
type stubOracle struct {
	attribution AttributionMap
	calls       int
}

func (o *stubOracle) Blame(_ context.Context, _ WorkItem) (AttributionMap, error) {
	o.calls++

	return o.attribution, nil
}

func newTestPipeline(oracle Oracle) *pipeline {
	p := &pipeline{oracle: oracle, opts: Options{
		Retry: RetryPolicy{
			MaxAttempts: 2,
			Interval:    time.Millisecond,
			Sleep:       func(time.Duration) {},
		},
	}}
	p.opts.normalize()

	return p
}

func TestAccumulatorTerminatesOnExactCount(t *testing.T) {
	p := newTestPipeline(nil)

	results := make(chan Message, 3)
	results <- Count{Total: 2}
	results <- Partial{Attribution: AttributionMap{"alice": 1}}
	results <- Partial{Attribution: AttributionMap{"alice": 2}}

	token := NewToken()

	err := p.runAccumulator(context.Background(), token, results)

	require.NoError(t, err)
	assert.True(t, token.Cancelled(), "terminal condition must set the token")
	assert.Equal(t, Tally{"alice": 3}, p.tally)
}

func TestAccumulatorCountsDropsTowardTermination(t *testing.T) {
	p := newTestPipeline(nil)
	p.dropped.Store(1)

	results := make(chan Message, 2)
	results <- Count{Total: 2}
	results <- Partial{Attribution: AttributionMap{"bob": 4}}

	err := p.runAccumulator(context.Background(), NewToken(), results)

	require.NoError(t, err)
	assert.Equal(t, Tally{"bob": 4}, p.tally)
}

func TestAccumulatorObservesLateDropViaPoll(t *testing.T) {
	p := newTestPipeline(nil)

	results := make(chan Message, 2)
	results <- Count{Total: 2}
	results <- Partial{Attribution: AttributionMap{"bob": 4}}

	done := make(chan error, 1)

	go func() {
		done <- p.runAccumulator(context.Background(), NewToken(), results)
	}()

	// The accumulator is now blocked one short of the expected total. A
	// drop recorded while it waits must still end the run.
	time.Sleep(20 * time.Millisecond)
	p.dropped.Add(1)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("accumulator never re-checked the dropped counter")
	}
}

func TestAccumulatorDuplicateCountIsProtocolViolation(t *testing.T) {
	p := newTestPipeline(nil)

	results := make(chan Message, 2)
	results <- Count{Total: 5}
	results <- Count{Total: 5}

	err := p.runAccumulator(context.Background(), NewToken(), results)

	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestAccumulatorClosedChannelIsProtocolViolation(t *testing.T) {
	p := newTestPipeline(nil)

	results := make(chan Message, 2)
	results <- Count{Total: 2}
	results <- Partial{}
	close(results)

	err := p.runAccumulator(context.Background(), NewToken(), results)

	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestAccumulatorOvercountIsProtocolViolation(t *testing.T) {
	p := newTestPipeline(nil)

	results := make(chan Message, 3)
	results <- Partial{}
	results <- Partial{}
	results <- Count{Total: 1}

	err := p.runAccumulator(context.Background(), NewToken(), results)

	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestAccumulatorUndercountBlocksUntilCancelled(t *testing.T) {
	// An undercounted run (Count never satisfied) must not terminate on its
	// own; context cancellation is the only way out. This pins down the
	// documented failure mode of a broken termination protocol.
	p := newTestPipeline(nil)

	results := make(chan Message, 2)
	results <- Count{Total: 3}
	results <- Partial{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.runAccumulator(ctx, NewToken(), results)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerDropsAfterRetryBudget(t *testing.T) {
	oracle := &stubOracle{attribution: AttributionMap{"alice": 1}}
	p := newTestPipeline(oracle)

	work := make(chan WorkItem, 1)
	work <- WorkItem{Path: "a.go"}

	results := make(chan Message) // unbuffered and never drained: always full
	token := NewToken()

	done := make(chan error, 1)

	go func() {
		done <- p.runWorker(context.Background(), token, work, results)
	}()

	require.Eventually(t, func() bool {
		return p.dropped.Load() == 1
	}, 5*time.Second, time.Millisecond, "worker never abandoned the delivery")

	token.Cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, int64(0), p.skipped.Load(), "a drop is not a skip")
}

func TestWorkerTakesNoItemAfterCancellation(t *testing.T) {
	oracle := &stubOracle{attribution: AttributionMap{"alice": 1}}
	p := newTestPipeline(oracle)

	work := make(chan WorkItem, 1)
	work <- WorkItem{Path: "a.go"}

	token := NewToken()
	token.Cancel()

	err := p.runWorker(context.Background(), token, work, make(chan Message, 1))

	require.NoError(t, err)
	assert.Zero(t, oracle.calls, "cancelled worker must not pick up new work")
	assert.Len(t, work, 1, "item stays queued")
}
