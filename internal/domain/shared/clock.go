package shared

import "time"

// Clock is an abstraction for time operations, allowing time to be mocked in tests
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock implements Clock using the actual system time
type RealClock struct{}

// Now returns the current system time in UTC
func (r *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep blocks for the given duration
func (r *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// NewRealClock creates a RealClock instance
func NewRealClock() Clock {
	return &RealClock{}
}

// MockClock implements Clock with a controllable time for testing.
// Sleep advances the clock without blocking, so retry loops run instantly.
type MockClock struct {
	CurrentTime time.Time
}

// NewMockClock creates a MockClock starting at the given time.
// If zero time is provided, starts at the current time.
func NewMockClock(startTime time.Time) *MockClock {
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}
	return &MockClock{CurrentTime: startTime}
}

// Now returns the mock's current time
func (m *MockClock) Now() time.Time {
	return m.CurrentTime
}

// Sleep advances the mock clock without blocking
func (m *MockClock) Sleep(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// Advance moves the mock clock forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// SetTime sets the mock clock to a specific time
func (m *MockClock) SetTime(t time.Time) {
	m.CurrentTime = t
}
