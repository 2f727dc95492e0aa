package sim

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Clock supplies the simulation reference time, captured once before any
// flow starts, and elapsed-time queries against it. It is read-only after
// construction and safe for concurrent use.
type Clock struct {
	start time.Time
	now   func() time.Time
}

// NewClock captures the reference time from NowFunc.
func NewClock() *Clock {
	now := NowFunc
	return &Clock{start: now(), now: now}
}

// Start returns the reference time.
func (c *Clock) Start() time.Time { return c.start }

// Now returns the current wall time.
func (c *Clock) Now() time.Time { return c.now() }

// Elapsed returns the time since the reference time.
func (c *Clock) Elapsed() time.Duration { return c.now().Sub(c.start) }

// Until returns how long remains until offset from the reference time.
// A negative result means the offset has already passed.
func (c *Clock) Until(offset time.Duration) time.Duration {
	return offset - c.Elapsed()
}

