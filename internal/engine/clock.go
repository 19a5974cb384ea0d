package engine

import "time"

// Clock supplies wall time for activity timestamps and the month cursor.
// Ordering of activities never depends on it: the log is ordered by
// insertion, newest first.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Used for deterministic
// activity timestamps in tests and scenario traces.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
