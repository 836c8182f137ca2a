package core

import (
	gomath "math"
	"testing"
)

func resetMetrics(t *testing.T) {
	t.Helper()
	if err := MetricsInitialize(); err != nil {
		t.Fatalf("MetricsInitialize: %v", err)
	}
	metricsState = &MetricsState{}
}

func TestMetricsRollingFrameTime(t *testing.T) {
	resetMetrics(t)

	// 0.5s and 0.25s are exact in binary floating point, so the
	// average is too.
	MetricsUpdate(0.5)
	if got := MetricsFrameTime(); got != 500 {
		t.Fatalf("frame time after one sample = %g, want 500", got)
	}
	MetricsUpdate(0.25)
	if got := MetricsFrameTime(); got != 375 {
		t.Fatalf("frame time after two samples = %g, want 375", got)
	}

	// Once the window fills, old samples fall out of the average.
	for i := 0; i < frameSampleCount; i++ {
		MetricsUpdate(0.25)
	}
	if got := MetricsFrameTime(); got != 250 {
		t.Errorf("frame time after the window filled = %g, want 250", got)
	}
}

func TestMetricsFPSAccumulation(t *testing.T) {
	resetMetrics(t)

	if MetricsFPS() != 0 {
		t.Fatal("fps should start at zero")
	}
	// Two 500ms frames accumulate exactly one second.
	MetricsUpdate(0.5)
	MetricsUpdate(0.5)
	if got := MetricsFPS(); gomath.Abs(got-2) > 1e-9 {
		t.Errorf("fps = %g, want 2", got)
	}
}

func TestMetricsRecordDraws(t *testing.T) {
	resetMetrics(t)

	MetricsRecordDraws(12, 40, 2)
	drawCalls, batched, switches := MetricsDraws()
	if drawCalls != 12 || batched != 40 || switches != 2 {
		t.Errorf("draws = %d/%d/%d, want 12/40/2", drawCalls, batched, switches)
	}
}
