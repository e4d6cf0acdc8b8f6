// Package clock abstracts wall-clock time so that step-aligned scheduling
// can be tested without real waits.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current wall-clock time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

// Mock is a manually controlled Clock for tests.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock creates a Mock frozen at the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Set moves the mock to an absolute time.
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = now
}

// Advance moves the mock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
}
