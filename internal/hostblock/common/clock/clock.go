package clock

import "time"

// Clock abstracts wall time and sleeping so the change detector's stability
// delay can be controlled in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

func (c RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// MockClock advances only when told to; Sleep advances it by the requested
// duration without blocking.
type MockClock struct {
	CurrentTime time.Time
	slept       []time.Duration
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

func (c *MockClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.CurrentTime = c.CurrentTime.Add(d)
}

func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

// SleepCalls returns the durations passed to Sleep, in order.
func (c *MockClock) SleepCalls() []time.Duration {
	return c.slept
}
