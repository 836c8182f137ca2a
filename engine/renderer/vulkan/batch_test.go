package vulkan

import (
	"testing"
)

// streamTestRenderer builds a renderer whose frame slots carry
// distinct stream buffer sets, without touching the GPU.
func streamTestRenderer() *VulkanRenderer {
	vr := &VulkanRenderer{states: newStateStack()}
	for i := 0; i < MaxFramesInFlight; i++ {
		vr.vertexStreams[i] = &VulkanStreamBuffer{size: vertexBufferSize}
		vr.quadVertexStreams[i] = &VulkanStreamBuffer{size: smallVertexBufferSize}
		vr.indexStreams[i] = &VulkanStreamBuffer{size: indexBufferSize}
	}
	return vr
}

func TestFrameStreamsArePerSlot(t *testing.T) {
	vr := streamTestRenderer()

	first := vr.frameQuadVertexStream()
	vr.ring.advance()
	second := vr.frameQuadVertexStream()

	if first == second {
		t.Fatal("both frame slots share one quad vertex stream")
	}
	if vr.frameVertexStream() == vr.vertexStreams[0] {
		t.Error("vertex stream did not follow the ring advance")
	}
	vr.ring.advance()
	if vr.frameQuadVertexStream() != first {
		t.Error("ring wrap should return to the first slot's stream")
	}
}

func TestStreamRewindLeavesOtherSlotAlone(t *testing.T) {
	vr := streamTestRenderer()
	vr.vertexStreams[0].cursor = 100
	vr.quadVertexStreams[0].cursor = 200
	vr.indexStreams[0].cursor = 300
	vr.vertexStreams[1].cursor = 400
	vr.quadVertexStreams[1].cursor = 500
	vr.indexStreams[1].cursor = 600

	vr.rewindFrameStreams(0)

	if got := vr.vertexStreams[0].Used(); got != 0 {
		t.Errorf("slot 0 vertex cursor = %d after rewind, want 0", got)
	}
	if got := vr.quadVertexStreams[0].Used(); got != 0 {
		t.Errorf("slot 0 quad vertex cursor = %d after rewind, want 0", got)
	}
	if got := vr.indexStreams[0].Used(); got != 0 {
		t.Errorf("slot 0 index cursor = %d after rewind, want 0", got)
	}

	// Slot 1 may still be feeding the GPU; its cursors must survive.
	if vr.vertexStreams[1].Used() != 400 || vr.quadVertexStreams[1].Used() != 500 || vr.indexStreams[1].Used() != 600 {
		t.Error("rewinding slot 0 touched slot 1's stream cursors")
	}
}
