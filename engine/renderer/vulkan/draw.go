package vulkan

import (
	"fmt"
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// VertexSource is anything a draw can read vertex or index data
// from.
type VertexSource interface {
	NativeHandle() vk.Buffer
}

// BufferBinding attaches a buffer region to a vertex buffer binding
// slot.
type BufferBinding struct {
	Buffer VertexSource
	Offset int
}

type BufferBindings struct {
	UseBits  uint32
	Bindings [metadata.MaxVertexBindings]BufferBinding
}

func (bb *BufferBindings) Set(index int, buffer VertexSource, offset int) {
	bb.UseBits |= 1 << uint(index)
	bb.Bindings[index] = BufferBinding{Buffer: buffer, Offset: offset}
}

// DrawCommand is a non-indexed draw request.
type DrawCommand struct {
	Attributes metadata.VertexAttributes
	Buffers    *BufferBindings
	// Texture sampled by the fragment stage; nil uses the default
	// white texture.
	Texture  *VulkanTexture
	Topology metadata.PrimitiveTopology
	CullMode metadata.FaceCullMode

	VertexStart   uint32
	VertexCount   uint32
	InstanceCount uint32
}

// DrawIndexedCommand is an indexed draw request.
type DrawIndexedCommand struct {
	Attributes metadata.VertexAttributes
	Buffers    *BufferBindings
	Texture    *VulkanTexture
	Topology   metadata.PrimitiveTopology
	CullMode   metadata.FaceCullMode

	IndexBuffer       VertexSource
	IndexType         metadata.IndexType
	IndexBufferOffset int
	IndexCount        uint32
	InstanceCount     uint32
}

// quadBatch is one indexed draw of a quad run.
type quadBatch struct {
	QuadCount  uint32
	BaseVertex int32
}

// quadSubBatches splits a quad run into draws that fit the 16-bit
// index range. The base vertex advances by the consumed vertices so
// every draw reuses the same static index buffer.
func quadSubBatches(start, count int) []quadBatch {
	var batches []quadBatch
	baseVertex := start * 4
	for count > 0 {
		quads := count
		if quads > maxQuadsPerDraw {
			quads = maxQuadsPerDraw
		}
		batches = append(batches, quadBatch{
			QuadCount:  uint32(quads),
			BaseVertex: int32(baseVertex),
		})
		baseVertex += quads * 4
		count -= quads
	}
	return batches
}

// gammaCorrectColor converts a display color to linear space when
// gamma-correct rendering is on.
func gammaCorrectColor(c metadata.Color, gammaCorrect bool) math.Vec4 {
	c = c.Clamped()
	if !gammaCorrect {
		return math.Vec4{X: c.R, Y: c.G, Z: c.B, W: c.A}
	}
	toLinear := func(v float32) float32 {
		if v <= 0.04045 {
			return v / 12.92
		}
		return float32(gomath.Pow(float64(v+0.055)/1.055, 2.4))
	}
	return math.Vec4{X: toLinear(c.R), Y: toLinear(c.G), Z: toLinear(c.B), W: c.A}
}

// buildBuiltinUniforms packs the per-draw uniform block. The DPI
// scale and point size ride in the unused W components of the first
// two normal matrix rows, and the projection is pre-multiplied by
// the display rotation so pre-rotated surfaces render upright.
func buildBuiltinUniforms(transform, projection, displayRotation math.Mat4,
	screenWidth, screenHeight uint32, dpiScale, pointSize float32,
	color metadata.Color, gammaCorrect bool) builtinUniforms {

	u := builtinUniforms{
		Transform:    transform,
		Projection:   displayRotation.Mul(projection),
		NormalMatrix: transform.NormalMatrix(),
		Color:        gammaCorrectColor(color, gammaCorrect),
	}
	u.NormalMatrix[0].W = dpiScale
	u.NormalMatrix[1].W = pointSize

	w, h := float32(screenWidth), float32(screenHeight)
	u.ScreenSize = math.Vec4{X: w, Y: h, Z: 1, W: 1}
	if w > 0 {
		u.ScreenSize.Z = 1 / w
	}
	if h > 0 {
		u.ScreenSize.W = 1 / h
	}
	return u
}

// prepareDraw resolves the pipeline for a draw configuration, binds
// it unless it is already bound, pushes descriptor state and binds
// the vertex buffers. Called with a render pass active.
func (vr *VulkanRenderer) prepareDraw(attrs metadata.VertexAttributes, buffers *BufferBindings,
	texture *VulkanTexture, topology metadata.PrimitiveTopology, cullMode metadata.FaceCullMode) error {

	if vr.currentRenderPass == nil {
		return fmt.Errorf("draw issued outside of a frame")
	}

	state := vr.states.current()
	shader := vr.defaultShader

	key := PipelineKey{
		RenderPass:     vr.currentRenderPass.Handle,
		Shader:         shader,
		Attributes:     attrs,
		Topology:       topology,
		Wireframe:      state.Wireframe,
		Blend:          state.Blend,
		ColorMask:      state.ColorMask,
		Winding:        state.Winding,
		CullMode:       cullMode,
		ViewportWidth:  vr.viewportWidth,
		ViewportHeight: vr.viewportHeight,
		Scissor:        state.Scissor,
	}

	pipeline, err := vr.context.pipelineCache.resolve(key)
	if err != nil {
		return err
	}

	cb := vr.ring.slot().commands.Handle
	if vr.binder.requires(pipeline) {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, pipeline.Handle)
	}

	if shader != vr.lastShader {
		vr.stats.ShaderSwitches++
		vr.lastShader = shader
	}

	if texture == nil {
		texture = vr.defaultTexture
	}

	// Pre-rotation only applies to the swapchain surface, never to
	// render-target textures.
	displayRotation := math.NewMat4Identity()
	if vr.renderTarget == nil {
		displayRotation = vr.context.Swapchain.DisplayRotation
	}

	shader.SetUniforms(buildBuiltinUniforms(
		vr.transform, vr.projection, displayRotation,
		vr.viewportWidth, vr.viewportHeight,
		vr.dpiScale, state.PointSize, state.Color, vr.gammaCorrect))
	shader.SetMainTexture(texture)
	if err := shader.PushDescriptorSets(vr, cb, vr.ring.index()); err != nil {
		return err
	}

	// Bind the application's vertex buffers, then the constant color
	// buffer when the format synthesized a binding for it.
	input := buildVertexInputState(attrs)
	for _, binding := range input.Bindings {
		if input.UsesConstantColor && binding.Binding == input.ConstantColorBinding {
			vk.CmdBindVertexBuffers(cb, binding.Binding, 1,
				[]vk.Buffer{vr.constantColorBuffer.NativeHandle()}, []vk.DeviceSize{0})
			continue
		}
		if buffers == nil || buffers.UseBits&(1<<binding.Binding) == 0 {
			return fmt.Errorf("vertex format uses binding %d but no buffer is bound there", binding.Binding)
		}
		bb := buffers.Bindings[binding.Binding]
		vk.CmdBindVertexBuffers(cb, binding.Binding, 1,
			[]vk.Buffer{bb.Buffer.NativeHandle()}, []vk.DeviceSize{vk.DeviceSize(bb.Offset)})
	}

	return nil
}

// Draw issues a non-indexed draw. Dropped while no frame is
// recording.
func (vr *VulkanRenderer) Draw(cmd *DrawCommand) error {
	if !vr.recordingFrame() {
		return nil
	}
	if err := vr.prepareDraw(cmd.Attributes, cmd.Buffers, cmd.Texture, cmd.Topology, cmd.CullMode); err != nil {
		return err
	}
	instances := cmd.InstanceCount
	if instances == 0 {
		instances = 1
	}
	vk.CmdDraw(vr.ring.slot().commands.Handle, cmd.VertexCount, instances, cmd.VertexStart, 0)
	vr.stats.DrawCalls++
	return nil
}

// DrawIndexed issues an indexed draw. Dropped while no frame is
// recording.
func (vr *VulkanRenderer) DrawIndexed(cmd *DrawIndexedCommand) error {
	if !vr.recordingFrame() {
		return nil
	}
	if err := vr.prepareDraw(cmd.Attributes, cmd.Buffers, cmd.Texture, cmd.Topology, cmd.CullMode); err != nil {
		return err
	}
	cb := vr.ring.slot().commands.Handle
	vk.CmdBindIndexBuffer(cb, cmd.IndexBuffer.NativeHandle(), vk.DeviceSize(cmd.IndexBufferOffset), indexTypeToVK(cmd.IndexType))
	instances := cmd.InstanceCount
	if instances == 0 {
		instances = 1
	}
	vk.CmdDrawIndexed(cb, cmd.IndexCount, instances, 0, 0, 0)
	vr.stats.DrawCalls++
	return nil
}

// DrawQuads draws count quads of 4 sequential vertices each from the
// bound vertex buffers, split into sub-draws that fit the shared
// 16-bit quad index buffer.
func (vr *VulkanRenderer) DrawQuads(start, count int, attrs metadata.VertexAttributes, buffers *BufferBindings, texture *VulkanTexture) error {
	if !vr.recordingFrame() {
		return nil
	}
	if err := vr.prepareDraw(attrs, buffers, texture, metadata.TopologyTriangles, metadata.FaceCullModeBack); err != nil {
		return err
	}

	cb := vr.ring.slot().commands.Handle
	vk.CmdBindIndexBuffer(cb, vr.quadIndexBuffer.NativeHandle(), 0, vk.IndexTypeUint16)

	for _, batch := range quadSubBatches(start, count) {
		vk.CmdDrawIndexed(cb, batch.QuadCount*6, 1, 0, batch.BaseVertex, 0)
		vr.stats.DrawCalls++
	}
	return nil
}

// Clear fills the current viewport with a color. The render pass
// does not clear on load, so this is an explicit attachment clear.
// Dropped while no frame is recording.
func (vr *VulkanRenderer) Clear(color metadata.Color) error {
	if !vr.recordingFrame() {
		return nil
	}
	if vr.currentRenderPass == nil {
		return fmt.Errorf("clear issued outside of a frame")
	}
	color = color.Clamped()

	attachment := vk.ClearAttachment{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue([]float32{color.R, color.G, color.B, color.A}),
	}
	rect := vk.ClearRect{
		Rect: vk.Rect2D{
			Extent: vk.Extent2D{Width: vr.viewportWidth, Height: vr.viewportHeight},
		},
		LayerCount: 1,
	}
	vk.CmdClearAttachments(vr.ring.slot().commands.Handle, 1, []vk.ClearAttachment{attachment}, 1, []vk.ClearRect{rect})
	return nil
}

// startRenderPass begins rendering into the current target: either
// the acquired swapchain image or a render-target texture, which is
// transitioned from shader-read to color-attachment first.
func (vr *VulkanRenderer) startRenderPass() error {
	slot := vr.ring.slot()

	var format vk.Format
	var view vk.ImageView
	var width, height uint32

	if vr.renderTarget != nil {
		if !vr.renderTarget.IsRenderTarget() {
			return fmt.Errorf("texture %s was not created as a render target", vr.renderTarget.ID)
		}
		format = vr.renderTarget.Format
		view = vr.renderTarget.RenderTargetView()
		width, height = vr.renderTarget.Width, vr.renderTarget.Height

		transitionImageLayout(slot.commands.Handle, vr.renderTarget.NativeImage(),
			vr.renderTarget.layout, vk.ImageLayoutColorAttachmentOptimal)
		vr.renderTarget.layout = vk.ImageLayoutColorAttachmentOptimal
	} else {
		swapchain := vr.context.Swapchain
		format = swapchain.ImageFormat.Format
		view = swapchain.ImageViews[vr.context.ImageIndex]
		width, height = swapchain.Extent.Width, swapchain.Extent.Height
	}

	renderPass, err := vr.context.renderPassCache.resolve(RenderPassKey{Format: format})
	if err != nil {
		return err
	}
	framebuffer, err := vr.context.framebufferCache.resolve(FramebufferKey{
		RenderPass: renderPass.Handle,
		View:       view,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return err
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
	}
	vk.CmdBeginRenderPass(slot.commands.Handle, &beginInfo, vk.SubpassContentsInline)
	slot.commands.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS

	vr.currentRenderPass = renderPass
	vr.viewportWidth = width
	vr.viewportHeight = height
	vr.updateProjection()
	// Pipeline binds do not survive a render pass boundary.
	vr.binder.reset()
	return nil
}

// endRenderPass closes the active render pass. Render-target
// textures return to shader-read layout so later draws can sample
// them.
func (vr *VulkanRenderer) endRenderPass() {
	if vr.currentRenderPass == nil {
		return
	}
	slot := vr.ring.slot()
	vk.CmdEndRenderPass(slot.commands.Handle)
	slot.commands.State = COMMAND_BUFFER_STATE_RECORDING

	if vr.renderTarget != nil {
		transitionImageLayout(slot.commands.Handle, vr.renderTarget.NativeImage(),
			vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
		vr.renderTarget.layout = vk.ImageLayoutShaderReadOnlyOptimal
	}
	vr.currentRenderPass = nil
}

// SetRenderTarget redirects subsequent draws to a texture, or back
// to the swapchain when nil. Pending batched draws flush to the
// outgoing target first.
func (vr *VulkanRenderer) SetRenderTarget(texture *VulkanTexture) error {
	if texture == vr.renderTarget {
		return nil
	}
	if texture != nil && !texture.IsRenderTarget() {
		return fmt.Errorf("texture %s was not created as a render target", texture.ID)
	}
	if !vr.recordingFrame() {
		vr.renderTarget = texture
		return nil
	}
	if err := vr.flushBatchedDraws(); err != nil {
		return err
	}
	vr.endRenderPass()
	vr.renderTarget = texture
	return vr.startRenderPass()
}

// SetTransform replaces the model transform used by following draws.
func (vr *VulkanRenderer) SetTransform(m math.Mat4) {
	vr.transform = m
}

// updateProjection rebuilds the orthographic projection for the
// current viewport.
func (vr *VulkanRenderer) updateProjection() {
	vr.projection = math.NewMat4Orthographic(0, float32(vr.viewportWidth), float32(vr.viewportHeight), 0, -1, 1)
}
