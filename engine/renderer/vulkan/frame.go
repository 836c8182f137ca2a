package vulkan

import (
	vk "github.com/goki/vulkan"
)

// releaseKind tags a deferred resource release so the drain knows
// which destroy calls to issue.
type releaseKind int

const (
	releaseBuffer releaseKind = iota
	releaseImage
	releaseFramebuffer
)

// resourceRelease is one deferred destruction request. Releases are
// queued on the frame slot that last referenced the resource and
// executed only after that slot's fence has signaled.
type resourceRelease struct {
	Kind        releaseKind
	Buffer      vk.Buffer
	Memory      vk.DeviceMemory
	Image       vk.Image
	View        vk.ImageView
	Framebuffer vk.Framebuffer
}

// frameSlot is the per-frame synchronization state: one fence, two
// semaphores, the primary and data-transfer command buffers and the
// deferred release queue drained when the slot is reused.
type frameSlot struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence

	commands *VulkanCommandBuffer
	transfer *VulkanCommandBuffer

	releases []resourceRelease
}

// queueRelease defers a resource destruction until the slot's fence
// proves the GPU is done with the frame that used it.
func (s *frameSlot) queueRelease(r resourceRelease) {
	s.releases = append(s.releases, r)
}

// drainReleases runs every queued release through the dispatch
// function and empties the queue. It returns how many were drained.
func (s *frameSlot) drainReleases(release func(resourceRelease)) int {
	n := len(s.releases)
	for _, r := range s.releases {
		release(r)
	}
	s.releases = s.releases[:0]
	return n
}

// frameRing cycles through the frame slots.
type frameRing struct {
	slots   [MaxFramesInFlight]frameSlot
	current int
}

// slot returns the active frame slot.
func (r *frameRing) slot() *frameSlot {
	return &r.slots[r.current]
}

// index returns the active slot number.
func (r *frameRing) index() int {
	return r.current
}

// advance moves to the next slot, wrapping around the ring.
func (r *frameRing) advance() {
	r.current = (r.current + 1) % MaxFramesInFlight
}

func (vr *VulkanRenderer) createFrameSlots() error {
	for i := 0; i < MaxFramesInFlight; i++ {
		slot := &vr.ring.slots[i]

		semaphoreInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreInfo, vr.context.Allocator, &slot.imageAvailable); res != vk.Success {
			return vkError("failed to create image-available semaphore", res)
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreInfo, vr.context.Allocator, &slot.renderFinished); res != vk.Success {
			return vkError("failed to create render-finished semaphore", res)
		}

		// Created signaled so the first wait on this slot passes.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		slot.inFlight = fence
	}
	return nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	for i := 0; i < MaxFramesInFlight; i++ {
		slot := &vr.ring.slots[i]

		commands, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		transfer, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		slot.commands = commands
		slot.transfer = transfer
	}
	return nil
}

func (vr *VulkanRenderer) destroyFrameSlots() {
	device := vr.context.Device.LogicalDevice
	for i := 0; i < MaxFramesInFlight; i++ {
		slot := &vr.ring.slots[i]

		// Anything still pending is safe to release after the
		// device-wide idle the caller performed.
		slot.drainReleases(vr.releaseResource)

		if slot.imageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(device, slot.imageAvailable, vr.context.Allocator)
			slot.imageAvailable = vk.NullSemaphore
		}
		if slot.renderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(device, slot.renderFinished, vr.context.Allocator)
			slot.renderFinished = vk.NullSemaphore
		}
		if slot.inFlight != nil {
			slot.inFlight.Destroy(vr.context)
			slot.inFlight = nil
		}
		if slot.commands != nil {
			slot.commands.Free(vr.context, vr.context.Device.GraphicsCommandPool)
			slot.commands = nil
		}
		if slot.transfer != nil {
			slot.transfer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
			slot.transfer = nil
		}
	}
}

// releaseResource destroys the native handles of a release request.
func (vr *VulkanRenderer) releaseResource(r resourceRelease) {
	device := vr.context.Device.LogicalDevice
	switch r.Kind {
	case releaseBuffer:
		if r.Buffer != vk.NullBuffer {
			vk.DestroyBuffer(device, r.Buffer, vr.context.Allocator)
		}
		if r.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(device, r.Memory, vr.context.Allocator)
		}
	case releaseImage:
		if r.View != vk.NullImageView {
			vk.DestroyImageView(device, r.View, vr.context.Allocator)
		}
		if r.Image != vk.NullImage {
			vk.DestroyImage(device, r.Image, vr.context.Allocator)
		}
		if r.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(device, r.Memory, vr.context.Allocator)
		}
	case releaseFramebuffer:
		if r.Framebuffer != vk.NullFramebuffer {
			vk.DestroyFramebuffer(device, r.Framebuffer, vr.context.Allocator)
		}
	}
}
