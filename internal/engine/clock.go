package engine

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// The engine keeps two: one stamps every admitted operation with its
// enqueue sequence, the other numbers list generations. Both start at 0 and
// the first value handed out is 1.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next value and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
