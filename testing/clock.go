package testing

import (
	"sync"
	"time"
)

// BaseTime is the instant every StepClock starts from
var BaseTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock. Now returns the current instant and then
// advances it by Step, so consecutive calls observe strictly increasing times.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	Step    time.Duration
}

// NewFixedClock never advances
func NewFixedClock(t time.Time) *StepClock {
	return &StepClock{current: t}
}

// NewStepClock starts at BaseTime and advances one second per call
func NewStepClock() *StepClock {
	return &StepClock{current: BaseTime, Step: time.Second}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.Step)
	return now
}

// Peek returns the next instant Now will return without advancing
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
