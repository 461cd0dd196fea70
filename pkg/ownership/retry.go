package ownership

import "time"

// RetryPolicy is a bounded-retry combinator: attempt an operation, wait a
// fixed interval between failures, give up after MaxAttempts. Used by
// workers to deliver results against a full queue, where giving up is a
// deliberate fail-open drop.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration

	// Sleep is replaceable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Do runs attempt until it reports success or the budget is exhausted.
// Returns whether the operation eventually succeeded. MaxAttempts below 1
// is treated as a single attempt.
func (p RetryPolicy) Do(attempt func() bool) bool {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if attempt() {
			return true
		}

		if i < attempts-1 {
			sleep(p.Interval)
		}
	}

	return false
}
