// Package system adapts the wall clock to the journal.Clock seam.
package system

import "time"

// Clock reads the real time. Records carry UTC archive timestamps, so
// Now normalizes before returning.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
