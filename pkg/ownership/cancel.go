package ownership

import (
	"sync"
	"sync/atomic"
)

// Token is a monotonic cancellation signal: it transitions false to true
// once and never resets. Workers poll it between items and select on Done
// while blocked, so cancellation is cooperative, never preemptive.
type Token struct {
	done      chan struct{}
	cancelled atomic.Bool
	once      sync.Once
}

// NewToken returns a token in the running state.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel sets the token. Idempotent.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.done)
	})
}

// Cancelled reports whether the token has been set.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Done returns a channel closed when the token is set, for use in select.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
