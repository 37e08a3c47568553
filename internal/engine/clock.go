package engine

import "sync/atomic"

// Clock is the logical event counter.
//
// Every executed event is stamped with a strictly increasing seq number
// from this clock. Simulation time cannot order events on its own: several
// events may share one instant. The seq number can, so stored logs sort by
// it and a replay reproduces the same sequence.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so
// observers on other goroutines may read Current while the loop runs.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when a run resumes from a snapshot.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the number of events stamped so far.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
