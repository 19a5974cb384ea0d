package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a Clock: 2024-03-14 09:00 UTC.
var Epoch = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

// Clock is a deterministic wall clock. Each call to Now returns the start
// instant advanced by one Step per previous call, so activity timestamps are
// distinct and reproducible.
//
// Implements engine.Clock. Safe for concurrent use.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewClock creates a clock starting at start. A zero start means Epoch.
func NewClock(start time.Time, step time.Duration) *Clock {
	if start.IsZero() {
		start = Epoch
	}
	return &Clock{start: start.UTC(), step: step}
}

// Now returns the next instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Reset rewinds the clock to its start instant.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

// Sequence is a monotonic counter used to number trace events.
//
// The first call to Next returns 1. Safe for concurrent use.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// Next increments and returns the counter.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the counter without incrementing.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset sets the counter back to 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
