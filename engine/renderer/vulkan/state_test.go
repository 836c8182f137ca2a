package vulkan

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func testRenderer() *VulkanRenderer {
	return &VulkanRenderer{states: newStateStack()}
}

func TestStateStackStartsWithDefaults(t *testing.T) {
	s := newStateStack()
	if s.depth() != 1 {
		t.Fatalf("depth = %d, want 1", s.depth())
	}
	cur := s.current()
	if (cur.Color != metadata.Color{R: 1, G: 1, B: 1, A: 1}) {
		t.Errorf("default color = %+v, want opaque white", cur.Color)
	}
	if cur.Winding != metadata.WindingCCW {
		t.Errorf("default winding = %d, want CCW", cur.Winding)
	}
	if cur.PointSize != 1 {
		t.Errorf("default point size = %v, want 1", cur.PointSize)
	}
	if cur.Blend != metadata.BlendAlpha() {
		t.Error("default blend should be alpha blending")
	}
}

func TestPushPopRestoresState(t *testing.T) {
	vr := testRenderer()

	vr.SetColor(metadata.Color{R: 0.2, G: 0.4, B: 0.6, A: 1})
	vr.PushState()
	vr.SetColor(metadata.Color{R: 1, G: 0, B: 0, A: 1})
	vr.SetWireframe(true)

	vr.PopState()

	cur := vr.states.current()
	if (cur.Color != metadata.Color{R: 0.2, G: 0.4, B: 0.6, A: 1}) {
		t.Errorf("color after pop = %+v, want the pre-push value", cur.Color)
	}
	if cur.Wireframe {
		t.Error("wireframe after pop should be restored to false")
	}
}

func TestBottomStateIsNotPoppable(t *testing.T) {
	vr := testRenderer()
	vr.SetColor(metadata.Color{R: 0.5, G: 0.5, B: 0.5, A: 1})

	vr.PopState()
	vr.PopState()

	if vr.states.depth() != 1 {
		t.Fatalf("depth = %d, want 1", vr.states.depth())
	}
	if (vr.states.current().Color != metadata.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}) {
		t.Error("bottom state should survive excess pops")
	}
}

func TestSetColorClamps(t *testing.T) {
	vr := testRenderer()
	vr.SetColor(metadata.Color{R: 2, G: -0.5, B: 0.5, A: 1.5})

	cur := vr.states.current()
	if (cur.Color != metadata.Color{R: 1, G: 0, B: 0.5, A: 1}) {
		t.Errorf("color = %+v, want channels clamped to [0,1]", cur.Color)
	}
}

func TestSettersMutateCurrentState(t *testing.T) {
	vr := testRenderer()

	scissor := metadata.ScissorState{
		Enable: true,
		Rect:   metadata.Rect{X: 10, Y: 20, W: 100, H: 50},
	}
	vr.SetScissor(scissor)
	vr.SetFrontFaceWinding(metadata.WindingCW)
	vr.SetPointSize(4)
	vr.SetColorMask(metadata.ColorMask{R: true, G: true})

	cur := vr.states.current()
	if cur.Scissor != scissor {
		t.Errorf("scissor = %+v", cur.Scissor)
	}
	if cur.Winding != metadata.WindingCW {
		t.Errorf("winding = %d", cur.Winding)
	}
	if cur.PointSize != 4 {
		t.Errorf("point size = %v", cur.PointSize)
	}
	if (cur.ColorMask != metadata.ColorMask{R: true, G: true}) {
		t.Errorf("color mask = %+v", cur.ColorMask)
	}
}

func TestSameValueSetterSkipsFlush(t *testing.T) {
	// Same-value writes return before touching the batch, so calling
	// them on a renderer with no GPU state must not panic.
	vr := testRenderer()
	cur := *vr.states.current()

	vr.SetColor(cur.Color)
	vr.SetBlendState(cur.Blend)
	vr.SetFrontFaceWinding(cur.Winding)
	vr.SetScissor(cur.Scissor)
	vr.SetColorMask(cur.ColorMask)
	vr.SetWireframe(cur.Wireframe)
	vr.SetPointSize(cur.PointSize)

	if *vr.states.current() != cur {
		t.Error("same-value setters should leave the state untouched")
	}
}

func TestPushStateIsACopy(t *testing.T) {
	vr := testRenderer()
	vr.PushState()
	vr.SetPointSize(9)

	if vr.states.states[0].PointSize == 9 {
		t.Error("mutating the pushed state must not affect the saved one")
	}
}
