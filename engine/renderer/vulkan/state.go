package vulkan

import (
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// RenderState is the snapshot of every pipeline-affecting setting a
// draw reads. States are plain values so the save/restore stack is a
// copy, not a reference.
type RenderState struct {
	Color     metadata.Color
	Blend     metadata.BlendState
	Winding   metadata.Winding
	Scissor   metadata.ScissorState
	ColorMask metadata.ColorMask
	Wireframe bool
	PointSize float32
}

func defaultRenderState() RenderState {
	return RenderState{
		Color:     metadata.Color{R: 1, G: 1, B: 1, A: 1},
		Blend:     metadata.BlendAlpha(),
		Winding:   metadata.WindingCCW,
		ColorMask: metadata.ColorMaskAll(),
		PointSize: 1,
	}
}

// stateStack holds the current state and its saved ancestors. The
// stack always has at least one entry.
type stateStack struct {
	states []RenderState
}

func newStateStack() *stateStack {
	return &stateStack{states: []RenderState{defaultRenderState()}}
}

func (s *stateStack) current() *RenderState {
	return &s.states[len(s.states)-1]
}

func (s *stateStack) push() {
	s.states = append(s.states, *s.current())
}

// pop restores the previously saved state. The bottom entry cannot
// be popped.
func (s *stateStack) pop() bool {
	if len(s.states) <= 1 {
		return false
	}
	s.states = s.states[:len(s.states)-1]
	return true
}

func (s *stateStack) depth() int {
	return len(s.states)
}

// Every mutator flushes pending batched draws first, so queued
// geometry is drawn with the state it was queued under. Mutators
// that would write the same value back skip the flush. A flush
// failure is latched and surfaced by the next Present.

func (vr *VulkanRenderer) SetColor(c metadata.Color) {
	clamped := c.Clamped()
	if vr.states.current().Color == clamped {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().Color = clamped
}

func (vr *VulkanRenderer) SetBlendState(b metadata.BlendState) {
	if vr.states.current().Blend == b {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().Blend = b
}

func (vr *VulkanRenderer) SetFrontFaceWinding(w metadata.Winding) {
	if vr.states.current().Winding == w {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().Winding = w
}

func (vr *VulkanRenderer) SetScissor(s metadata.ScissorState) {
	if vr.states.current().Scissor == s {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().Scissor = s
}

func (vr *VulkanRenderer) SetColorMask(m metadata.ColorMask) {
	if vr.states.current().ColorMask == m {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().ColorMask = m
}

func (vr *VulkanRenderer) SetWireframe(enabled bool) {
	if vr.states.current().Wireframe == enabled {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().Wireframe = enabled
}

func (vr *VulkanRenderer) SetPointSize(size float32) {
	if vr.states.current().PointSize == size {
		return
	}
	vr.latchError(vr.flushBatchedDraws())
	vr.states.current().PointSize = size
}

// PushState saves a copy of the current render state.
func (vr *VulkanRenderer) PushState() {
	vr.states.push()
}

// PopState restores the previously saved state, flushing batched
// draws queued under the outgoing one.
func (vr *VulkanRenderer) PopState() {
	vr.latchError(vr.flushBatchedDraws())
	vr.states.pop()
}
