// Package clock supplies operation timestamps to the vault. Payout gating
// compares whole Unix seconds, so every clock here is read once per
// operation and truncated by the caller.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System uses the host wall clock.
type System struct{}

// NewSystem returns the production clock.
func NewSystem() Clock { return System{} }

// Now returns time.Now in UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a test clock whose time only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual builds a manual clock positioned at initial.
func NewManual(initial time.Time) *Manual {
	return &Manual{now: initial.UTC()}
}

// Now returns the current manual time.
func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set positions the clock at t. Moving backwards is allowed so tests can
// exercise a skewed host.
func (c *Manual) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

var _ Clock = (*Manual)(nil)
