// Package clock provides the engine's monotonic timestamps and dense integer
// identifiers (spec.md §2 "Clock & Identifiers").
package clock

import (
	"sync/atomic"
	"time"
)

// Clock produces monotonic nanosecond timestamps anchored to a fixed epoch, so that
// replayed runs are reproducible (spec.md §8 determinism) instead of depending on
// wall-clock time.Now().
type Clock struct {
	epoch time.Time
	nanos atomic.Int64
}

// New creates a Clock anchored at epoch; Advance/Set move it forward as the driver
// processes events.
func New(epoch time.Time) *Clock {
	c := &Clock{epoch: epoch}
	c.nanos.Store(0)

	return c
}

// Set moves the clock to the given absolute time, provided it does not move backward.
func (c *Clock) Set(t time.Time) {
	delta := t.Sub(c.epoch).Nanoseconds()
	for {
		cur := c.nanos.Load()
		if delta <= cur {
			return
		}

		if c.nanos.CompareAndSwap(cur, delta) {
			return
		}
	}
}

// Now returns the clock's current simulated time.
func (c *Clock) Now() time.Time {
	return c.epoch.Add(time.Duration(c.nanos.Load()))
}

// IDGenerator hands out dense, strictly increasing integer identifiers. Shared by
// Orders and Fills, each with its own sequence.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator starts a sequence at 1 (0 is reserved to mean "unset").
func NewIDGenerator() *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(1)

	return g
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1) - 1
}
