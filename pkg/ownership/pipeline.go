package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/blametally/internal/observability"
)

// Mode selects how the pipeline executes.
type Mode string

// Execution modes.
const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// ErrUnknownMode is returned for an execution mode that is neither
// sequential nor concurrent.
var ErrUnknownMode = errors.New("unknown execution mode")

// Default pipeline knobs.
const (
	DefaultQueueSize       = 64
	DefaultResultQueueSize = 64
	DefaultRetryAttempts   = 10
	DefaultRetryInterval   = 50 * time.Millisecond

	// minDropPoll bounds how long the accumulator stays blocked before
	// re-reading the dropped counter.
	minDropPoll = 10 * time.Millisecond
)

// expectedUnknown is the accumulator's sentinel before Count arrives.
const expectedUnknown = -1

// Options configures a tally run.
type Options struct {
	Mode            Mode
	Workers         int // defaults to runtime.NumCPU()
	QueueSize       int // work channel capacity
	ResultQueueSize int // result channel capacity
	Retry           RetryPolicy

	Metrics *observability.Metrics // optional
	Logger  *slog.Logger           // optional
}

// Report is the published result of a completed run. Fail-soft skips and
// fail-open drops are surfaced here rather than silently absorbed.
type Report struct {
	Ranking         []AuthorLines
	Files           int // blobs emitted by the walk
	SkippedFiles    int // blame failures, tallied as empty partials
	DroppedPartials int // deliveries abandoned after the retry budget
	Elapsed         time.Duration
}

func (o *Options) normalize() {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}

	if o.QueueSize < 1 {
		o.QueueSize = DefaultQueueSize
	}

	if o.ResultQueueSize < 1 {
		o.ResultQueueSize = DefaultResultQueueSize
	}

	if o.Retry.MaxAttempts < 1 {
		o.Retry.MaxAttempts = DefaultRetryAttempts
	}

	if o.Retry.Interval <= 0 {
		o.Retry.Interval = DefaultRetryInterval
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Run walks the source, blames every item with the oracle, and returns the
// ranked global tally. Traversal and protocol failures are fatal; per-item
// blame failures are skipped and counted.
func Run(ctx context.Context, source Source, oracle Oracle, opts Options) (*Report, error) {
	opts.normalize()

	start := time.Now()

	pipe := &pipeline{source: source, oracle: oracle, opts: opts}

	var err error

	switch opts.Mode {
	case ModeSequential:
		err = pipe.runSequential(ctx)
	case ModeConcurrent, "":
		err = pipe.runConcurrent(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}

	if err != nil {
		return nil, err
	}

	return &Report{
		Ranking:         pipe.tally.Ranking(),
		Files:           pipe.files,
		SkippedFiles:    int(pipe.skipped.Load()),
		DroppedPartials: int(pipe.dropped.Load()),
		Elapsed:         time.Since(start),
	}, nil
}

// pipeline holds the state of one run. The tally is written only by the
// accumulator (or the single sequential loop); files is written only by the
// producer. Both are read after the errgroup settles.
type pipeline struct {
	source Source
	oracle Oracle
	opts   Options

	tally   Tally
	files   int
	skipped atomic.Int64
	dropped atomic.Int64
}

// blame runs the oracle on one item. Per-item failures are downgraded to a
// skip: the item still yields an (empty, nil) attribution so the counting
// protocol observes it. Context cancellation is not a skip; it aborts the
// caller.
func (p *pipeline) blame(ctx context.Context, item WorkItem) (AttributionMap, error) {
	begin := time.Now()
	attribution, err := p.oracle.Blame(ctx, item)
	p.opts.Metrics.ObserveBlame(time.Since(begin))

	if err != nil {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, ctxErr
		}

		p.skipped.Add(1)
		p.opts.Metrics.IncBlameError()
		p.opts.Logger.Warn("blame failed, skipping file", "path", item.Path, "error", err)

		return nil, nil
	}

	return attribution, nil
}

// runSequential processes items one at a time in traversal order. Used as
// the reference semantics the concurrent mode must reproduce.
func (p *pipeline) runSequential(ctx context.Context) error {
	p.tally = make(Tally)

	walker := NewWalker(p.source)

	files, err := walker.Walk(func(item WorkItem) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		p.opts.Metrics.IncFileWalked()

		attribution, blameErr := p.blame(ctx, item)
		if blameErr != nil {
			return blameErr
		}

		if attribution != nil {
			p.tally.Fold(attribution)
			p.opts.Metrics.IncPartialFolded()
		}

		return nil
	})

	p.files = files

	return err
}

// runConcurrent fans work out to a pool of workers and folds their results
// in a single accumulator. Termination is driven purely by counting: the
// producer's single Count plus one accounted Partial (delivered or
// dropped) per emitted item.
func (p *pipeline) runConcurrent(ctx context.Context) error {
	work := make(chan WorkItem, p.opts.QueueSize)
	results := make(chan Message, p.opts.ResultQueueSize)
	token := NewToken()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return p.runProducer(ctx, work, results)
	})

	for i := 0; i < p.opts.Workers; i++ {
		group.Go(func() error {
			return p.runWorker(ctx, token, work, results)
		})
	}

	group.Go(func() error {
		return p.runAccumulator(ctx, token, results)
	})

	return group.Wait()
}

// runProducer walks the snapshot into the work queue, then announces the
// emitted total on the result queue. The work queue is never closed:
// workers stop on cancellation only, so an undercounted Count is a genuine
// hang and is treated as a bug, not masked by channel closure.
func (p *pipeline) runProducer(ctx context.Context, work chan<- WorkItem, results chan<- Message) error {
	walker := NewWalker(p.source)

	emitted, err := walker.Walk(func(item WorkItem) error {
		select {
		case work <- item:
			p.opts.Metrics.IncFileWalked()

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return err
	}

	p.files = emitted

	select {
	case results <- Count{Total: emitted}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWorker loops: poll the token, take one item, blame it, deliver the
// partial through the retry policy. Delivery failure is fail-open: the
// partial is dropped, counted, and the worker moves on.
func (p *pipeline) runWorker(ctx context.Context, token *Token, work <-chan WorkItem, results chan<- Message) error {
	for {
		if token.Cancelled() {
			return nil
		}

		select {
		case <-token.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case item := <-work:
			attribution, blameErr := p.blame(ctx, item)
			if blameErr != nil {
				return blameErr
			}

			partial := Partial{Attribution: attribution}

			delivered := p.opts.Retry.Do(func() bool {
				select {
				case results <- partial:
					return true
				default:
					return false
				}
			})
			if !delivered {
				p.dropped.Add(1)
				p.opts.Metrics.IncPartialDropped()
				p.opts.Logger.Warn("result queue full, dropping partial", "path", item.Path)
			}
		}
	}
}

// runAccumulator is the sole owner of the tally. It terminates once the
// expected total is known and every emitted item is accounted for, either
// as a consumed partial or a recorded drop. Because a drop can land while
// the accumulator is blocked on an empty queue, the dropped counter is
// re-read on a timer tick.
func (p *pipeline) runAccumulator(ctx context.Context, token *Token, results <-chan Message) error {
	// Unblock the pool even when exiting on a fatal error.
	defer token.Cancel()

	tally := make(Tally)
	consumed := 0
	expected := expectedUnknown

	poll := p.opts.Retry.Interval
	if poll < minDropPoll {
		poll = minDropPoll
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for expected == expectedUnknown || consumed+int(p.dropped.Load()) < expected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Re-evaluate the loop condition against the dropped counter.
		case msg, ok := <-results:
			if !ok {
				return fmt.Errorf("%w: result channel closed", ErrProtocolViolation)
			}

			accErr := p.accumulate(msg, tally, &consumed, &expected)
			if accErr != nil {
				return accErr
			}
		}
	}

	if consumed+int(p.dropped.Load()) > expected {
		return fmt.Errorf("%w: accounted for more results than announced (%d consumed, %d dropped, %d expected)",
			ErrProtocolViolation, consumed, p.dropped.Load(), expected)
	}

	token.Cancel()
	p.tally = tally

	return nil
}

func (p *pipeline) accumulate(msg Message, tally Tally, consumed, expected *int) error {
	switch typed := msg.(type) {
	case Count:
		if *expected != expectedUnknown {
			return fmt.Errorf("%w: duplicate count message", ErrProtocolViolation)
		}

		*expected = typed.Total
	case Partial:
		tally.Fold(typed.Attribution)
		p.opts.Metrics.IncPartialFolded()

		*consumed++
	default:
		return fmt.Errorf("%w: unexpected message type %T", ErrProtocolViolation, msg)
	}

	return nil
}
