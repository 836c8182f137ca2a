package core

import "sync"

// frameSampleCount is the window of the rolling frame-time average.
const frameSampleCount = 30

// MetricsState aggregates frame pacing and the renderer's per-frame
// draw counters for the running application.
type MetricsState struct {
	samples   [frameSampleCount]float64
	sampleSum float64
	sampleIdx int
	filled    int

	frames  int
	accumMS float64
	fps     float64

	drawCalls        int
	drawCallsBatched int
	shaderSwitches   int
}

var onceMetrics sync.Once
var metricsState *MetricsState

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

// MetricsUpdate folds one frame into the rolling frame-time average
// and the per-second fps counter. frameSeconds is the wall time the
// frame took.
func MetricsUpdate(frameSeconds float64) {
	s := metricsState
	ms := frameSeconds * 1000

	s.sampleSum += ms - s.samples[s.sampleIdx]
	s.samples[s.sampleIdx] = ms
	s.sampleIdx = (s.sampleIdx + 1) % frameSampleCount
	if s.filled < frameSampleCount {
		s.filled++
	}

	s.frames++
	s.accumMS += ms
	if s.accumMS >= 1000 {
		s.fps = float64(s.frames) * 1000 / s.accumMS
		s.accumMS = 0
		s.frames = 0
	}
}

// MetricsRecordDraws stores the renderer's counters for the last
// presented frame so reports show GPU workload next to frame pacing.
func MetricsRecordDraws(drawCalls, batched, shaderSwitches int) {
	s := metricsState
	s.drawCalls = drawCalls
	s.drawCallsBatched = batched
	s.shaderSwitches = shaderSwitches
}

func MetricsFPS() float64 {
	return metricsState.fps
}

// MetricsFrameTime returns the rolling average frame time in
// milliseconds.
func MetricsFrameTime() float64 {
	s := metricsState
	if s.filled == 0 {
		return 0
	}
	return s.sampleSum / float64(s.filled)
}

func MetricsFrame() (float64, float64) {
	return MetricsFPS(), MetricsFrameTime()
}

// MetricsDraws returns the last recorded draw counters.
func MetricsDraws() (drawCalls, batched, shaderSwitches int) {
	s := metricsState
	return s.drawCalls, s.drawCallsBatched, s.shaderSwitches
}
