package vulkan

import (
	"errors"
	"testing"
)

func TestPresentInactiveIsANoOp(t *testing.T) {
	vr := streamTestRenderer()
	vr.active = false
	vr.batch.pending = 7

	if err := vr.Present(); err != nil {
		t.Fatalf("Present while inactive: %v", err)
	}
	if vr.batch.pending != 0 {
		t.Error("pending batched draws should be dropped while inactive")
	}
}

func TestDrawsDroppedOutsideRecordingFrame(t *testing.T) {
	vr := streamTestRenderer()
	vr.active = true
	vr.frameOpen = false

	if err := vr.BatchQuad(0, 0, 10, 10, nil); err != nil {
		t.Fatalf("BatchQuad: %v", err)
	}
	if vr.batch.pending != 0 {
		t.Error("quads must not queue while no frame is recording")
	}
	if err := vr.Draw(&DrawCommand{VertexCount: 3}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := vr.DrawIndexed(&DrawIndexedCommand{IndexCount: 3}); err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	if err := vr.Clear(defaultRenderState().Color); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if vr.stats.DrawCalls != 0 {
		t.Errorf("dropped draws still counted %d draw calls", vr.stats.DrawCalls)
	}

	// A stale batch from before the frame closed is discarded, not
	// recorded.
	vr.batch.pending = 3
	if err := vr.flushBatchedDraws(); err != nil {
		t.Fatalf("flushBatchedDraws: %v", err)
	}
	if vr.batch.pending != 0 {
		t.Error("flush outside a recording frame should drop the batch")
	}
}

func TestLatchedErrorSurfacesAtPresent(t *testing.T) {
	vr := streamTestRenderer()
	vr.active = true
	vr.frameOpen = false

	first := errors.New("pipeline resolution failed")
	second := errors.New("later failure")
	vr.latchError(first)
	vr.latchError(second)

	if err := vr.Present(); err != first {
		t.Fatalf("Present returned %v, want the first latched error", err)
	}
	// The latch clears once surfaced.
	if vr.deferredErr != nil {
		t.Error("latched error should clear after Present surfaces it")
	}
	vr.latchError(nil)
	if vr.deferredErr != nil {
		t.Error("latching nil must not set an error")
	}
}
