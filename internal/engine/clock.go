package engine

import "sync/atomic"

// Clock numbers the steps of a run.
//
// Every executed instruction is stamped with a strictly increasing seq from
// Next, starting at 1 after each Start. Steps and stored traces are ordered
// by seq only, never by wall-clock time.
//
// The engine is driven from one goroutine; the atomic lets another
// goroutine read Current for progress reporting.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
