package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source for services that take a now func.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now, or time.Now for a nil clock.
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

// At moves the clock to hour:minute of its current day and returns the new time.
func (c *Clock) At(hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.current.Date()
	c.current = time.Date(y, m, d, hour, minute, 0, 0, c.current.Location())
	return c.current
}
