package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const vertex2DSize = int(unsafe.Sizeof(math.Vertex2D{}))

// quadBatcher accumulates textured quads so runs sharing a texture
// and render state collapse into one indexed draw.
type quadBatcher struct {
	texture *VulkanTexture
	// Byte offset of the batch's first vertex in the quad stream.
	offset  int
	pending int
}

func quadVertexAttributes() metadata.VertexAttributes {
	var attrs metadata.VertexAttributes
	attrs.Set(metadata.AttribPosition, metadata.VertexFormatVec2, 0, 0)
	attrs.Set(metadata.AttribTexcoord, metadata.VertexFormatVec2, 0, uint16(unsafe.Sizeof(math.Vec2{})))
	attrs.SetLayout(0, uint16(vertex2DSize))
	return attrs
}

// createBatchedDrawBuffers allocates one set of vertex and index
// stream buffers per frame slot plus the static constant color buffer
// bound when a vertex format has no color attribute.
func (vr *VulkanRenderer) createBatchedDrawBuffers() error {
	var err error
	for i := 0; i < MaxFramesInFlight; i++ {
		if vr.vertexStreams[i], err = vr.NewStreamBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vertexBufferSize); err != nil {
			return err
		}
		if vr.quadVertexStreams[i], err = vr.NewStreamBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), smallVertexBufferSize); err != nil {
			return err
		}
		if vr.indexStreams[i], err = vr.NewStreamBuffer(vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), indexBufferSize); err != nil {
			return err
		}
	}

	// One white RGBA32F vertex, stride zero, read by every draw whose
	// format leaves the color attribute disabled.
	white := [4]float32{1, 1, 1, 1}
	vr.constantColorBuffer, err = vr.NewStaticBuffer(
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		unsafe.Slice((*byte)(unsafe.Pointer(&white[0])), constantColorBufferSize))
	return err
}

func (vr *VulkanRenderer) destroyBatchedDrawBuffers() {
	for i := 0; i < MaxFramesInFlight; i++ {
		if vr.vertexStreams[i] != nil {
			vr.vertexStreams[i].destroy()
			vr.vertexStreams[i] = nil
		}
		if vr.quadVertexStreams[i] != nil {
			vr.quadVertexStreams[i].destroy()
			vr.quadVertexStreams[i] = nil
		}
		if vr.indexStreams[i] != nil {
			vr.indexStreams[i].destroy()
			vr.indexStreams[i] = nil
		}
	}
	if vr.constantColorBuffer != nil {
		vr.constantColorBuffer.destroy(vr.context)
		vr.constantColorBuffer = nil
	}
}

// frameVertexStream returns the active slot's general vertex stream.
func (vr *VulkanRenderer) frameVertexStream() *VulkanStreamBuffer {
	return vr.vertexStreams[vr.ring.index()]
}

func (vr *VulkanRenderer) frameQuadVertexStream() *VulkanStreamBuffer {
	return vr.quadVertexStreams[vr.ring.index()]
}

func (vr *VulkanRenderer) frameIndexStream() *VulkanStreamBuffer {
	return vr.indexStreams[vr.ring.index()]
}

// StreamVertexData copies vertex data into the frame's vertex stream
// and returns the buffer and byte offset to bind it at. The memory
// is valid for the current frame only.
func (vr *VulkanRenderer) StreamVertexData(data []byte) (VertexSource, int, error) {
	stream := vr.frameVertexStream()
	offset, err := stream.Write(data)
	if err != nil {
		return nil, 0, err
	}
	return stream, offset, nil
}

// StreamIndexData is StreamVertexData for index data.
func (vr *VulkanRenderer) StreamIndexData(data []byte) (VertexSource, int, error) {
	stream := vr.frameIndexStream()
	offset, err := stream.Write(data)
	if err != nil {
		return nil, 0, err
	}
	return stream, offset, nil
}

// BatchQuad queues an axis-aligned textured quad. Quads accumulate
// until the texture changes, a render state mutator runs, the batch
// reaches the index buffer's capacity, or the frame presents.
func (vr *VulkanRenderer) BatchQuad(x, y, w, h float32, texture *VulkanTexture) error {
	if !vr.recordingFrame() {
		return nil
	}
	if texture == nil {
		texture = vr.defaultTexture
	}
	if vr.batch.pending > 0 && texture != vr.batch.texture {
		if err := vr.flushBatchedDraws(); err != nil {
			return err
		}
	}

	vertices := [4]math.Vertex2D{
		{Position: math.Vec2{X: x, Y: y}, Texcoord: math.Vec2{X: 0, Y: 0}},
		{Position: math.Vec2{X: x + w, Y: y}, Texcoord: math.Vec2{X: 1, Y: 0}},
		{Position: math.Vec2{X: x, Y: y + h}, Texcoord: math.Vec2{X: 0, Y: 1}},
		{Position: math.Vec2{X: x + w, Y: y + h}, Texcoord: math.Vec2{X: 1, Y: 1}},
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), 4*vertex2DSize)

	offset, err := vr.frameQuadVertexStream().Write(data)
	if err != nil {
		return err
	}
	if vr.batch.pending == 0 {
		vr.batch.texture = texture
		vr.batch.offset = offset
	}
	vr.batch.pending++

	if vr.batch.pending == maxQuadsPerDraw {
		return vr.flushBatchedDraws()
	}
	return nil
}

// flushBatchedDraws draws the queued quads as one indexed draw. A
// no-op when nothing is queued, so state mutators call it freely.
func (vr *VulkanRenderer) flushBatchedDraws() error {
	if vr.batch.pending == 0 {
		return nil
	}
	if !vr.recordingFrame() {
		vr.batch = quadBatcher{}
		return nil
	}
	pending := vr.batch.pending
	texture := vr.batch.texture
	offset := vr.batch.offset
	vr.batch = quadBatcher{}

	buffers := &BufferBindings{}
	buffers.Set(0, vr.frameQuadVertexStream(), offset)

	if err := vr.DrawQuads(0, pending, quadVertexAttributes(), buffers, texture); err != nil {
		return err
	}
	if pending > 1 {
		vr.stats.DrawCallsBatched += pending - 1
	}
	return nil
}

// rewindFrameStreams resets the write cursors of one slot's stream
// buffer set. The other slot's streams may still be feeding the GPU.
func (vr *VulkanRenderer) rewindFrameStreams(frame int) {
	vr.vertexStreams[frame].NextFrame()
	vr.quadVertexStreams[frame].NextFrame()
	vr.indexStreams[frame].NextFrame()
}

// nextFrameStreams reclaims the incoming slot's stream buffers and
// descriptor pool. Only called once the slot's fence has signaled.
func (vr *VulkanRenderer) nextFrameStreams() {
	frame := vr.ring.index()
	vr.rewindFrameStreams(frame)
	vr.defaultShader.nextFrame(vr.context, frame)
}
