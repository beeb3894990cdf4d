package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// After fires immediately and advances the clock by the requested duration.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time

	// Waits records every duration passed to After
	Waits []time.Duration
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// After advances the clock by d and returns an already-fired channel
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Waits = append(c.Waits, d)
	c.CurrentTime = c.CurrentTime.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.CurrentTime
	return ch
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = t
}

// RecordedWaits returns a copy of the durations passed to After
func (c *MockClock) RecordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.Waits...)
}
