// Package clock abstracts wall time so the animation engine and the timer
// pool can be driven deterministically in tests.
package clock

import (
	"slices"
	"sync"
	"time"
)

// Clock provides the current time and one-shot callbacks measured on it.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has passed on this clock.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call and reports whether it was still pending.
	Stop() bool
}

// System is the real monotonic clock.
type System struct{}

// Now returns the current time with a monotonic reading.
func (System) Now() time.Time {
	return time.Now()
}

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Mock is a manually advanced clock. Set and Advance run the callbacks of
// timers whose deadline has been reached, in deadline order, before they
// return.
type Mock struct {
	mu     sync.RWMutex
	now    time.Time
	timers []*mockTimer
}

type mockTimer struct {
	m        *Mock
	deadline time.Time
	f        func()
}

// NewMock creates a mock clock starting at start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mocked time.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// AfterFunc schedules f for d after the mocked now. A non-positive d runs f
// right away on a new goroutine.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTimer{m: m, deadline: m.now.Add(d), f: f}
	if d <= 0 {
		go f()
		return t
	}
	m.timers = append(m.timers, t)
	return t
}

func (t *mockTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	idx := slices.Index(t.m.timers, t)
	if idx < 0 {
		return false
	}
	t.m.timers = slices.Delete(t.m.timers, idx, idx+1)
	return true
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	due := m.dueLocked()
	m.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	due := m.dueLocked()
	m.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

// PendingTimers returns the number of timers that have not fired or been
// stopped.
func (m *Mock) PendingTimers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timers)
}

func (m *Mock) dueLocked() []*mockTimer {
	var due []*mockTimer
	m.timers = slices.DeleteFunc(m.timers, func(t *mockTimer) bool {
		if t.deadline.After(m.now) {
			return false
		}
		due = append(due, t)
		return true
	})
	slices.SortStableFunc(due, func(a, b *mockTimer) int {
		return a.deadline.Compare(b.deadline)
	})
	return due
}
