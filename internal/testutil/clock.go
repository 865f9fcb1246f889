package testutil

import "sync/atomic"

// DeterministicClock is a resettable logical clock for scenario traces.
//
// The harness stamps every executed step with Next so the same scenario
// yields the same sequence numbers on every run.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

// Current returns the last value handed out, 0 before the first Next.
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }

// Reset rewinds the clock so the next Next returns 1 again.
func (c *DeterministicClock) Reset() { c.seq.Store(0) }
