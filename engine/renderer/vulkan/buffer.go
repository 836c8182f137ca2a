package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanBuffer is a static buffer whose contents are written once,
// like the shared quad index buffer or the constant color buffer.
type VulkanBuffer struct {
	ID     string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   int
}

// NativeHandle exposes the buffer to draw command bindings.
func (b *VulkanBuffer) NativeHandle() vk.Buffer {
	return b.Handle
}

// createBufferAndMemory allocates a buffer and binds fresh device
// memory of the requested property flags to it.
func createBufferAndMemory(context *VulkanContext, size int, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); res != vk.Success {
		return vk.NullBuffer, vk.NullDeviceMemory, vkError("failed to create buffer", res)
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &memRequirements)
	memRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memRequirements.MemoryTypeBits, uint32(properties))
	if memoryIndex < 0 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		err := fmt.Errorf("no suitable memory type for buffer of size %d", size)
		core.LogError(err.Error())
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, vkError("failed to allocate buffer memory", res)
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, vkError("failed to bind buffer memory", res)
	}

	return buffer, memory, nil
}

// NewStaticBuffer creates a host-visible buffer prefilled with data.
func (vr *VulkanRenderer) NewStaticBuffer(usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	buffer, memory, err := createBufferAndMemory(vr.context, len(data), usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(vr.context.Device.LogicalDevice, memory, 0, vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		vk.FreeMemory(vr.context.Device.LogicalDevice, memory, vr.context.Allocator)
		vk.DestroyBuffer(vr.context.Device.LogicalDevice, buffer, vr.context.Allocator)
		return nil, vkError("failed to map buffer memory", res)
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(vr.context.Device.LogicalDevice, memory)

	return &VulkanBuffer{
		ID:     core.GenerateID(),
		Handle: buffer,
		Memory: memory,
		Size:   len(data),
	}, nil
}

// Release queues the buffer for destruction once the current frame
// slot's fence has signaled.
func (b *VulkanBuffer) Release(vr *VulkanRenderer) {
	vr.ring.slot().queueRelease(resourceRelease{
		Kind:   releaseBuffer,
		Buffer: b.Handle,
		Memory: b.Memory,
	})
	b.Handle = vk.NullBuffer
	b.Memory = vk.NullDeviceMemory
}

func (b *VulkanBuffer) destroy(context *VulkanContext) {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// quadIndexPattern is the index order of one quad's two triangles.
var quadIndexPattern = [6]uint16{0, 1, 2, 2, 1, 3}

// buildQuadIndices fills out the repeating quad index pattern for
// quadCount quads of 4 vertices each.
func buildQuadIndices(quadCount int) []uint16 {
	indices := make([]uint16, 0, quadCount*6)
	for q := 0; q < quadCount; q++ {
		base := uint16(q * 4)
		for _, offset := range quadIndexPattern {
			indices = append(indices, base+offset)
		}
	}
	return indices
}

// createQuadIndexBuffer builds the shared static index buffer every
// quad batch draws from. It covers the full 16-bit vertex range.
func (vr *VulkanRenderer) createQuadIndexBuffer() error {
	indices := buildQuadIndices(maxQuadsPerDraw)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*2)

	buffer, err := vr.NewStaticBuffer(vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), data)
	if err != nil {
		return err
	}
	vr.quadIndexBuffer = buffer
	return nil
}
