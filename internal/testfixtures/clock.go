package testfixtures

import (
	"sync"
	"time"
)

// Epoch is the shared reference instant: midnight UTC on day 1 of an
// employment window in the expiry scenarios.
var Epoch = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

// Day returns midnight of the nth day counted from Epoch, with Day(1) == Epoch.
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n-1)
}

// EndOfDay returns the last instant of Day(n).
func EndOfDay(n int) time.Time {
	return Day(n + 1).Add(-time.Nanosecond)
}

// Clock is a controllable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at Epoch when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = Epoch
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection into resolvers and evaluators.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
