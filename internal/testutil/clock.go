package testutil

import (
	"sync"
	"time"

	"github.com/roach88/agora/internal/clock"
)

// Epoch is the default start instant for SteppingClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a sandbox-mode clock.Provider whose every Now call moves
// forward by a fixed step. Two runs of the same scenario produce identical
// timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewSteppingClock creates a clock starting at start. The first call to
// Now returns start; each later call adds step.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{start: start, step: step}
}

// Now implements clock.Provider.
func (c *SteppingClock) Now() clock.Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return clock.TimeStamp(t)
}

// DaysAgo implements clock.Provider relative to the last returned instant.
func (c *SteppingClock) DaysAgo(n int) clock.Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.start.Add(time.Duration(max(c.calls-1, 0)) * c.step)
	return clock.TimeStamp(last.AddDate(0, 0, -n))
}

// Mode implements clock.Provider.
func (c *SteppingClock) Mode() clock.Mode { return clock.ModeSandbox }

// Calls returns how many times Now has been called.
func (c *SteppingClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
