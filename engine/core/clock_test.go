package core

import "testing"

func TestClockDelta(t *testing.T) {
	c := NewClock()

	if got := c.Delta(); got != 0 {
		t.Fatalf("Delta before Start = %g, want 0", got)
	}

	c.Start()
	if got := c.Delta(); got < 0 {
		t.Errorf("Delta = %g, want non-negative", got)
	}
	if got := c.Delta(); got < 0 {
		t.Errorf("second Delta = %g, want non-negative", got)
	}

	c.Stop()
	if got := c.Delta(); got != 0 {
		t.Errorf("Delta after Stop = %g, want 0", got)
	}
}
