package ratelimit

import "sync/atomic"

// ConcurrentLimiter is a counting semaphore over atomics. A limit of zero
// or less admits everything.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter returns a limiter admitting up to limit holders.
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	return &ConcurrentLimiter{limit: int64(limit)}
}

// Acquire takes a slot. A caller that gets true must call Release.
func (cl *ConcurrentLimiter) Acquire() bool {
	n := cl.current.Add(1)
	if cl.limit > 0 && n > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrentLimiter) Release() {
	cl.current.Add(-1)
}

// Current returns the number of held slots.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}
