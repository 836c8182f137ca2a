package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanStreamBuffer is a persistently mapped host-visible buffer
// with a frame-scoped write cursor. Draw data is appended during a
// frame and the cursor rewinds once the frame's fence-guarded slot
// is safe to reuse.
type VulkanStreamBuffer struct {
	renderer *VulkanRenderer

	usage  vk.BufferUsageFlags
	handle vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer

	size   int
	cursor int
}

func (vr *VulkanRenderer) NewStreamBuffer(usage vk.BufferUsageFlags, size int) (*VulkanStreamBuffer, error) {
	sb := &VulkanStreamBuffer{
		renderer: vr,
		usage:    usage,
	}
	if err := sb.allocate(size); err != nil {
		return nil, err
	}
	return sb, nil
}

func (sb *VulkanStreamBuffer) allocate(size int) error {
	context := sb.renderer.context
	buffer, memory, err := createBufferAndMemory(context, size, sb.usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, memory, 0, vk.DeviceSize(size), 0, &mapped); res != vk.Success {
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return vkError("failed to map stream buffer memory", res)
	}

	sb.handle = buffer
	sb.memory = memory
	sb.mapped = mapped
	sb.size = size
	sb.cursor = 0
	return nil
}

// NativeHandle exposes the buffer to draw command bindings.
func (sb *VulkanStreamBuffer) NativeHandle() vk.Buffer {
	return sb.handle
}

// Write appends data and returns the byte offset it landed at. When
// the remaining space is too small the buffer grows: a larger buffer
// replaces it and the old one is queued on the current frame slot's
// release list, since in-flight draws may still read from it.
func (sb *VulkanStreamBuffer) Write(data []byte) (int, error) {
	if len(data) > sb.size-sb.cursor {
		if err := sb.grow(sb.cursor + len(data)); err != nil {
			return 0, err
		}
	}

	offset := sb.cursor
	dst := unsafe.Pointer(uintptr(sb.mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
	sb.cursor += len(data)
	return offset, nil
}

// WriteAligned is Write with the start offset rounded up first.
func (sb *VulkanStreamBuffer) WriteAligned(data []byte, alignment int) (int, error) {
	if alignment > 0 {
		rem := sb.cursor % alignment
		if rem != 0 {
			sb.cursor += alignment - rem
		}
	}
	return sb.Write(data)
}

func (sb *VulkanStreamBuffer) grow(needed int) error {
	newSize := sb.size * 2
	for newSize < needed {
		newSize *= 2
	}
	core.LogDebug("growing stream buffer from %d to %d bytes", sb.size, newSize)

	oldHandle, oldMemory, oldMapped := sb.handle, sb.memory, sb.mapped
	oldCursor := sb.cursor

	if err := sb.allocate(newSize); err != nil {
		sb.handle, sb.memory, sb.mapped = oldHandle, oldMemory, oldMapped
		return fmt.Errorf("stream buffer growth failed: %w", err)
	}

	// Carry over this frame's writes so offsets already handed out
	// stay valid.
	if oldCursor > 0 {
		vk.Memcopy(sb.mapped, unsafe.Slice((*byte)(oldMapped), oldCursor))
		sb.cursor = oldCursor
	}

	vk.UnmapMemory(sb.renderer.context.Device.LogicalDevice, oldMemory)
	sb.renderer.ring.slot().queueRelease(resourceRelease{
		Kind:   releaseBuffer,
		Buffer: oldHandle,
		Memory: oldMemory,
	})
	return nil
}

// NextFrame rewinds the write cursor. Only call after the owning
// frame slot's fence has signaled.
func (sb *VulkanStreamBuffer) NextFrame() {
	sb.cursor = 0
}

// Used reports how many bytes this frame has written.
func (sb *VulkanStreamBuffer) Used() int {
	return sb.cursor
}

func (sb *VulkanStreamBuffer) destroy() {
	context := sb.renderer.context
	if sb.memory != vk.NullDeviceMemory {
		vk.UnmapMemory(context.Device.LogicalDevice, sb.memory)
		vk.FreeMemory(context.Device.LogicalDevice, sb.memory, context.Allocator)
		sb.memory = vk.NullDeviceMemory
	}
	if sb.handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, sb.handle, context.Allocator)
		sb.handle = vk.NullBuffer
	}
	sb.mapped = nil
}
