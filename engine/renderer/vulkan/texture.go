package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapMirroredRepeat
	WrapClampToEdge
)

type VulkanSampler struct {
	Handle vk.Sampler
}

func filterToVK(f FilterMode) vk.Filter {
	if f == FilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func wrapToVK(w WrapMode) vk.SamplerAddressMode {
	switch w {
	case WrapMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case WrapClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// samplerCreateInfo translates a sampler key into its create info.
// All textures here are 2D, so the W axis is a fixed clamp.
func samplerCreateInfo(key SamplerKey, maxAnisotropy float32) vk.SamplerCreateInfo {
	createInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MinFilter:    filterToVK(key.MinFilter),
		MagFilter:    filterToVK(key.MagFilter),
		AddressModeU: wrapToVK(key.WrapU),
		AddressModeV: wrapToVK(key.WrapV),
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MipmapMode:   vk.SamplerMipmapModeLinear,
	}
	if key.Anisotropy > 1 {
		anisotropy := float32(key.Anisotropy)
		if anisotropy > maxAnisotropy {
			anisotropy = maxAnisotropy
		}
		createInfo.AnisotropyEnable = vk.True
		createInfo.MaxAnisotropy = anisotropy
	}
	return createInfo
}

func (vr *VulkanRenderer) buildSampler(key SamplerKey) (*VulkanSampler, error) {
	createInfo := samplerCreateInfo(key, vr.context.Device.MaxSamplerAnisotropy)

	var handle vk.Sampler
	if res := vk.CreateSampler(vr.context.Device.LogicalDevice, &createInfo, vr.context.Allocator, &handle); res != vk.Success {
		return nil, vkError("failed to create sampler", res)
	}
	return &VulkanSampler{Handle: handle}, nil
}

func (vr *VulkanRenderer) destroySampler(s *VulkanSampler) {
	if s.Handle != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, s.Handle, vr.context.Allocator)
		s.Handle = vk.NullSampler
	}
}

// TextureSettings describes a texture to create.
type TextureSettings struct {
	Width        uint32
	Height       uint32
	RenderTarget bool
	MinFilter    FilterMode
	MagFilter    FilterMode
	WrapU        WrapMode
	WrapV        WrapMode
	Anisotropy   uint8
}

// VulkanTexture is a sampled 2D image, optionally usable as a render
// target.
type VulkanTexture struct {
	ID     string
	Width  uint32
	Height uint32
	Format vk.Format

	image   vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView
	sampler *VulkanSampler

	renderTarget bool
	// layout tracks the image's current layout across render-target
	// switches.
	layout vk.ImageLayout
}

// NativeImage exposes the image for layout transitions.
func (t *VulkanTexture) NativeImage() vk.Image {
	return t.image
}

// RenderTargetView exposes the view framebuffers attach. Only valid
// when the texture was created as a render target.
func (t *VulkanTexture) RenderTargetView() vk.ImageView {
	return t.view
}

// IsRenderTarget reports whether draws can target this texture.
func (t *VulkanTexture) IsRenderTarget() bool {
	return t.renderTarget
}

// NewTexture creates a sampled texture. Render targets additionally
// get the color-attachment usage bit. Pixel data is uploaded
// separately with ReplacePixels.
func (vr *VulkanRenderer) NewTexture(settings TextureSettings) (*VulkanTexture, error) {
	if settings.Width == 0 || settings.Height == 0 {
		return nil, fmt.Errorf("texture size %dx%d is not valid", settings.Width, settings.Height)
	}
	if settings.Width > vr.context.Device.MaxTextureSize || settings.Height > vr.context.Device.MaxTextureSize {
		return nil, fmt.Errorf("texture size %dx%d exceeds the device maximum %d",
			settings.Width, settings.Height, vr.context.Device.MaxTextureSize)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	if settings.RenderTarget {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}

	format := vr.textureFormat()

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  settings.Width,
			Height: settings.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if res := vk.CreateImage(vr.context.Device.LogicalDevice, &imageInfo, vr.context.Allocator, &image); res != vk.Success {
		return nil, vkError("failed to create texture image", res)
	}

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vr.context.Device.LogicalDevice, image, &memRequirements)
	memRequirements.Deref()

	memoryIndex := vr.context.FindMemoryIndex(memRequirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		vk.DestroyImage(vr.context.Device.LogicalDevice, image, vr.context.Allocator)
		err := fmt.Errorf("no suitable memory type for texture %dx%d", settings.Width, settings.Height)
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vr.context.Device.LogicalDevice, &allocInfo, vr.context.Allocator, &memory); res != vk.Success {
		vk.DestroyImage(vr.context.Device.LogicalDevice, image, vr.context.Allocator)
		return nil, vkError("failed to allocate texture memory", res)
	}
	if res := vk.BindImageMemory(vr.context.Device.LogicalDevice, image, memory, 0); res != vk.Success {
		vk.FreeMemory(vr.context.Device.LogicalDevice, memory, vr.context.Allocator)
		vk.DestroyImage(vr.context.Device.LogicalDevice, image, vr.context.Allocator)
		return nil, vkError("failed to bind texture memory", res)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(vr.context.Device.LogicalDevice, &viewInfo, vr.context.Allocator, &view); res != vk.Success {
		vk.FreeMemory(vr.context.Device.LogicalDevice, memory, vr.context.Allocator)
		vk.DestroyImage(vr.context.Device.LogicalDevice, image, vr.context.Allocator)
		return nil, vkError("failed to create texture image view", res)
	}

	sampler, err := vr.context.samplerCache.resolve(SamplerKey{
		MinFilter:  settings.MinFilter,
		MagFilter:  settings.MagFilter,
		WrapU:      settings.WrapU,
		WrapV:      settings.WrapV,
		Anisotropy: settings.Anisotropy,
	})
	if err != nil {
		vk.DestroyImageView(vr.context.Device.LogicalDevice, view, vr.context.Allocator)
		vk.FreeMemory(vr.context.Device.LogicalDevice, memory, vr.context.Allocator)
		vk.DestroyImage(vr.context.Device.LogicalDevice, image, vr.context.Allocator)
		return nil, err
	}

	return &VulkanTexture{
		ID:           core.GenerateID(),
		Width:        settings.Width,
		Height:       settings.Height,
		Format:       format,
		image:        image,
		memory:       memory,
		view:         view,
		sampler:      sampler,
		renderTarget: settings.RenderTarget,
		layout:       vk.ImageLayoutUndefined,
	}, nil
}

// frameTransferRecording reports whether the current slot's data
// transfer command buffer is open for this frame's uploads.
func (vr *VulkanRenderer) frameTransferRecording() bool {
	if !vr.created {
		return false
	}
	transfer := vr.ring.slot().transfer
	return transfer != nil && transfer.State == COMMAND_BUFFER_STATE_RECORDING
}

// recordUpload writes the staging-to-image copy with the layout
// transitions around it.
func (t *VulkanTexture) recordUpload(cb vk.CommandBuffer, staging vk.Buffer) {
	transitionImageLayout(cb, t.image, t.layout, vk.ImageLayoutTransferDstOptimal)

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: t.Width, Height: t.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb, staging, t.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	transitionImageLayout(cb, t.image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	t.layout = vk.ImageLayoutShaderReadOnlyOptimal
}

// ReplacePixels uploads RGBA8 pixel data through a staging buffer and
// leaves the texture shader readable. During a frame the copy rides
// on the slot's data transfer command buffer, which is submitted
// ahead of the graphics commands; the staging buffer is queued on the
// slot's release list. During bring-up it falls back to a blocking
// one-shot submit.
func (t *VulkanTexture) ReplacePixels(vr *VulkanRenderer, pixels []byte) error {
	expected := int(t.Width) * int(t.Height) * 4
	if len(pixels) != expected {
		return fmt.Errorf("pixel data is %d bytes, want %d for %dx%d", len(pixels), expected, t.Width, t.Height)
	}

	staging, stagingMemory, err := createBufferAndMemory(vr.context, len(pixels),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	destroyStaging := func() {
		vk.FreeMemory(vr.context.Device.LogicalDevice, stagingMemory, vr.context.Allocator)
		vk.DestroyBuffer(vr.context.Device.LogicalDevice, staging, vr.context.Allocator)
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(vr.context.Device.LogicalDevice, stagingMemory, 0, vk.DeviceSize(len(pixels)), 0, &mapped); res != vk.Success {
		destroyStaging()
		return vkError("failed to map staging buffer", res)
	}
	vk.Memcopy(mapped, pixels)
	vk.UnmapMemory(vr.context.Device.LogicalDevice, stagingMemory)

	if vr.frameTransferRecording() {
		slot := vr.ring.slot()
		t.recordUpload(slot.transfer.Handle, staging)
		slot.queueRelease(resourceRelease{
			Kind:   releaseBuffer,
			Buffer: staging,
			Memory: stagingMemory,
		})
		return nil
	}

	cb, err := AllocateAndBeginSingleUse(vr.context, vr.context.Device.GraphicsCommandPool)
	if err != nil {
		destroyStaging()
		return err
	}
	t.recordUpload(cb.Handle, staging)
	if err := cb.EndSingleUse(vr.context, vr.context.Device.GraphicsCommandPool, vr.context.Device.GraphicsQueue); err != nil {
		destroyStaging()
		return err
	}
	destroyStaging()
	return nil
}

// Release queues the texture's image resources on the current frame
// slot. The cached sampler stays shared.
func (t *VulkanTexture) Release(vr *VulkanRenderer) {
	vr.ring.slot().queueRelease(resourceRelease{
		Kind:   releaseImage,
		Image:  t.image,
		View:   t.view,
		Memory: t.memory,
	})
	t.image = vk.NullImage
	t.view = vk.NullImageView
	t.memory = vk.NullDeviceMemory
}

func (t *VulkanTexture) destroy(context *VulkanContext) {
	if t.view != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, t.view, context.Allocator)
		t.view = vk.NullImageView
	}
	if t.image != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, t.image, context.Allocator)
		t.image = vk.NullImage
	}
	if t.memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, t.memory, context.Allocator)
		t.memory = vk.NullDeviceMemory
	}
}

// textureFormat picks the default texture format, sRGB when gamma
// correction is enabled.
func (vr *VulkanRenderer) textureFormat() vk.Format {
	if vr.gammaCorrect {
		return vk.FormatR8g8b8a8Srgb
	}
	return vk.FormatR8g8b8a8Unorm
}

// createDefaultTexture builds the 1x1 opaque white texture bound
// whenever a draw has no texture of its own.
func (vr *VulkanRenderer) createDefaultTexture() error {
	texture, err := vr.NewTexture(TextureSettings{
		Width:     1,
		Height:    1,
		MinFilter: FilterNearest,
		MagFilter: FilterNearest,
		WrapU:     WrapClampToEdge,
		WrapV:     WrapClampToEdge,
	})
	if err != nil {
		return err
	}
	if err := texture.ReplacePixels(vr, []byte{0xFF, 0xFF, 0xFF, 0xFF}); err != nil {
		texture.destroy(vr.context)
		return err
	}
	vr.defaultTexture = texture
	return nil
}
