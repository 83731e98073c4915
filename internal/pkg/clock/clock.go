package clock

import (
	"sync"
	"time"
)

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock, optionally reporting it in a fixed location.
type TimeClocker struct {
	loc *time.Location
}

// New returns a TimeClocker in the process local zone.
func New() *TimeClocker {
	return &TimeClocker{}
}

// NewIn returns a TimeClocker that reports time in loc.
func NewIn(loc *time.Location) *TimeClocker {
	return &TimeClocker{loc: loc}
}

// Now returns the current system time.
func (c *TimeClocker) Now() time.Time {
	now := time.Now()
	if c.loc != nil {
		return now.In(c.loc)
	}
	return now
}

// Fixed is a Clocker frozen at an instant. It only moves through Advance or Set.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Fixed clock reading t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the frozen instant.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
