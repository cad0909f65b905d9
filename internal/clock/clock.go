// Package clock provides the time source used by the schedulers and workflows.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in the application's location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System reads the wall clock.
type System struct {
	Loc *time.Location
}

// NewSystem returns a wall clock in loc, or time.Local when loc is nil.
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{Loc: loc}
}

func (s System) Now() time.Time {
	return time.Now().In(s.Location())
}

func (s System) Location() *time.Location {
	if s.Loc == nil {
		return time.Local
	}
	return s.Loc
}

// Fixed is a settable clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

// Set moves the clock to now.
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
