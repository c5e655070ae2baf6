// Package clock supplies the simulated time source used to stamp every
// platform record.
//
// Two providers exist. SandboxClock scales wall-clock elapsed time by a
// constant factor against a fixed simulated start. TickClock reports an
// integer tick that the simulation driver advances explicitly. The platform
// owns exactly one provider; nothing reaches for a process-wide clock.
package clock

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects which provider a platform uses.
type Mode string

const (
	// ModeSandbox scales real elapsed time against a fixed start.
	ModeSandbox Mode = "sandbox"

	// ModeTick reports a driver-controlled integer tick.
	ModeTick Mode = "tick"
)

// ParseMode validates a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSandbox:
		return ModeSandbox, nil
	case ModeTick:
		return ModeTick, nil
	default:
		return "", fmt.Errorf("unknown clock mode %q (want %q or %q)", s, ModeSandbox, ModeTick)
	}
}

// MinutesPerDay converts trend windows expressed in days into ticks.
// One tick is one simulated minute.
const MinutesPerDay = 24 * 60

// Provider is the time source injected into the platform.
type Provider interface {
	// Now returns the current simulated instant.
	Now() Stamp

	// DaysAgo returns the instant n simulated days before Now.
	DaysAgo(n int) Stamp

	// Mode reports the provider kind.
	Mode() Mode
}

// SandboxClock maps real time onto simulated time:
//
//	sim = start + (wall - realStart) * factor
type SandboxClock struct {
	factor    float64
	start     time.Time
	realStart time.Time
	now       func() time.Time
}

// SandboxOption configures a SandboxClock.
type SandboxOption func(*SandboxClock)

// WithStart overrides the simulated start instant (default: wall-clock now).
func WithStart(t time.Time) SandboxOption {
	return func(c *SandboxClock) {
		c.start = t
	}
}

// WithWallClock replaces the wall-clock source. Tests use it to control
// elapsed time without sleeping.
func WithWallClock(now func() time.Time) SandboxOption {
	return func(c *SandboxClock) {
		c.now = now
	}
}

// NewSandboxClock creates a sandbox clock with the given scale factor.
// A non-positive factor is treated as 1.
func NewSandboxClock(factor float64, opts ...SandboxOption) *SandboxClock {
	if factor <= 0 {
		factor = 1
	}
	c := &SandboxClock{
		factor: factor,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.realStart = c.now()
	if c.start.IsZero() {
		c.start = c.realStart
	}
	return c
}

// Now implements Provider.
func (c *SandboxClock) Now() Stamp {
	elapsed := c.now().Sub(c.realStart)
	scaled := time.Duration(float64(elapsed) * c.factor)
	return TimeStamp(c.start.Add(scaled))
}

// DaysAgo implements Provider.
func (c *SandboxClock) DaysAgo(n int) Stamp {
	return TimeStamp(c.Now().Time().AddDate(0, 0, -n))
}

// Mode implements Provider.
func (c *SandboxClock) Mode() Mode { return ModeSandbox }

// Factor returns the scale factor.
func (c *SandboxClock) Factor() float64 { return c.factor }

// TickClock reports an integer tick published by the simulation driver.
//
// Set may be called from the driver goroutine while the platform loop reads
// Now; the value is stored atomically. Ticks never move backwards.
type TickClock struct {
	mu   sync.Mutex
	tick atomic.Int64
}

// NewTickClock creates a tick clock starting at the given tick.
func NewTickClock(start int64) *TickClock {
	c := &TickClock{}
	c.tick.Store(start)
	return c
}

// Set publishes a new tick. Values lower than the current tick are ignored
// and reported as false.
func (c *TickClock) Set(tick int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tick < c.tick.Load() {
		return false
	}
	c.tick.Store(tick)
	return true
}

// Advance moves the tick forward by delta and returns the new value.
func (c *TickClock) Advance(delta int64) int64 {
	if delta < 0 {
		delta = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick.Add(delta)
}

// Current returns the tick without wrapping it in a Stamp.
func (c *TickClock) Current() int64 {
	return c.tick.Load()
}

// Now implements Provider.
func (c *TickClock) Now() Stamp {
	return TickStamp(c.tick.Load())
}

// DaysAgo implements Provider.
func (c *TickClock) DaysAgo(n int) Stamp {
	return TickStamp(c.tick.Load() - int64(n)*MinutesPerDay)
}

// Mode implements Provider.
func (c *TickClock) Mode() Mode { return ModeTick }
