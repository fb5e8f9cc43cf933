package tempora

import (
	"sync"
	"time"
)

// TimeProvider is the wall clock, read once per tick
type TimeProvider interface {
	Now() time.Time
}

// WallClock reads the system time in a fixed location
type WallClock struct {
	Location *time.Location
}

func NewWallClock(loc *time.Location) *WallClock {
	if loc == nil {
		loc = time.Local
	}
	return &WallClock{Location: loc}
}

func (c *WallClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// MockClock is a controllable clock for tests and replays
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set jumps the clock to t
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Advance moves the clock forward by d and returns the new time
func (m *MockClock) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
	return m.current
}
