package vulkan

import (
	"fmt"
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

type VulkanSwapchain struct {
	Handle       vk.Swapchain
	ImageFormat  vk.SurfaceFormat
	Extent       vk.Extent2D
	Images       []vk.Image
	ImageViews   []vk.ImageView
	PresentMode  vk.PresentMode
	PreTransform vk.SurfaceTransformFlagBits

	// DisplayRotation compensates for surface pre-rotation. It is
	// folded into the projection when building uniforms.
	DisplayRotation math.Mat4
}

// chooseSurfaceFormat prefers 8-bit BGRA with an sRGB-nonlinear
// color space, falling back to whatever the surface offers first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// chooseSwapPresentMode picks the present mode for a vsync setting.
// Each preference cascades to the next-best candidate before ending
// at fifo, which is always available: adaptive tries relaxed fifo,
// then mailbox, then immediate; on starts at mailbox; off starts at
// immediate.
func chooseSwapPresentMode(vsync config.VSyncMode, available []vk.PresentMode) vk.PresentMode {
	var candidates []vk.PresentMode
	switch vsync {
	case config.VSyncAdaptive:
		candidates = []vk.PresentMode{vk.PresentModeFifoRelaxed, vk.PresentModeMailbox, vk.PresentModeImmediate}
	case config.VSyncOn:
		candidates = []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}
	default:
		candidates = []vk.PresentMode{vk.PresentModeImmediate}
	}

	for _, want := range candidates {
		for _, mode := range available {
			if mode == want {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseSwapExtent resolves the swapchain size. The sentinel value
// in CurrentExtent means the surface takes its size from the
// swapchain, so the drawable size is used, clamped to the surface
// bounds.
func chooseSwapExtent(capabilities vk.SurfaceCapabilities, drawableWidth, drawableHeight uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != gomath.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  math.Clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: math.Clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// swapsExtent reports whether the surface transform rotates by a
// quarter turn, which swaps the logical width and height.
func swapsExtent(transform vk.SurfaceTransformFlagBits) bool {
	return transform == vk.SurfaceTransformRotate90Bit || transform == vk.SurfaceTransformRotate270Bit
}

// surfaceRotationAngle is the compensating rotation for a surface
// pre-transform, in radians.
func surfaceRotationAngle(transform vk.SurfaceTransformFlagBits) float32 {
	switch transform {
	case vk.SurfaceTransformRotate90Bit:
		return float32(-gomath.Pi / 2)
	case vk.SurfaceTransformRotate180Bit:
		return float32(-gomath.Pi)
	case vk.SurfaceTransformRotate270Bit:
		return float32(-3 * gomath.Pi / 2)
	default:
		return 0
	}
}

// SwapchainCreate builds a swapchain and its image views for the
// given drawable size.
func SwapchainCreate(context *VulkanContext, vsync config.VSyncMode, drawableWidth, drawableHeight uint32) (*VulkanSwapchain, error) {
	support := &context.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, support); err != nil {
		return nil, err
	}

	surfaceFormat := chooseSurfaceFormat(support.Formats)
	presentMode := chooseSwapPresentMode(vsync, support.PresentModes)
	extent := chooseSwapExtent(support.Capabilities, drawableWidth, drawableHeight)

	preTransform := support.Capabilities.CurrentTransform
	if swapsExtent(preTransform) {
		extent.Width, extent.Height = extent.Height, extent.Width
	}

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	graphicsIndex := uint32(context.Device.GraphicsQueueIndex)
	presentIndex := uint32(context.Device.PresentQueueIndex)
	if graphicsIndex != presentIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{graphicsIndex, presentIndex}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	swapchain := &VulkanSwapchain{
		ImageFormat:     surfaceFormat,
		Extent:          extent,
		PresentMode:     presentMode,
		PreTransform:    preTransform,
		DisplayRotation: math.NewMat4EulerZ(surfaceRotationAngle(preTransform)),
	}

	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &createInfo, context.Allocator, &swapchain.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var swapImageCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapImageCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain image count with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapImageCount, swapchain.Images); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	swapchain.ImageViews = make([]vk.ImageView, swapImageCount)
	for i, image := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   surfaceFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.ImageViews[i]); res != vk.Success {
			err := fmt.Errorf("failed to create swapchain image view with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}

	context.FramebufferWidth = extent.Width
	context.FramebufferHeight = extent.Height

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		extent.Width, extent.Height, swapImageCount, presentMode)
	return swapchain, nil
}

func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, view := range vs.ImageViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.ImageViews = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// AcquireNextImageIndex acquires the next presentable image. It
// returns core.ErrSwapchainBooting when the swapchain is out of date
// and must be recreated before any image can be acquired.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainBooting
	default:
		err := fmt.Errorf("failed to acquire swapchain image with error `%s`", VulkanResultString(result))
		core.LogError(err.Error())
		return 0, err
	}
}

// Present queues the image for presentation. Out-of-date and
// suboptimal results are reported as core.ErrSwapchainBooting so
// the caller recreates the swapchain.
func (vs *VulkanSwapchain) Present(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return core.ErrSwapchainBooting
	default:
		err := fmt.Errorf("failed to present swapchain image with error `%s`", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
}
