package core

import "time"

// Clock measures the wall-clock time between frames.
type Clock struct {
	last    time.Time
	running bool
}

func NewClock() *Clock {
	return &Clock{}
}

// Start begins timing. The first Delta after Start is near zero.
func (c *Clock) Start() {
	c.last = time.Now()
	c.running = true
}

// Stop halts the clock. Delta returns zero until restarted.
func (c *Clock) Stop() {
	c.running = false
}

// Delta returns the seconds elapsed since the previous Delta or
// Start call.
func (c *Clock) Delta() float64 {
	if !c.running {
		return 0
	}
	now := time.Now()
	delta := now.Sub(c.last).Seconds()
	c.last = now
	return delta
}
