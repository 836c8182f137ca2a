package vulkan

import (
	"fmt"
	gomath "math"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	defaultVertShaderPath = "assets/shaders/default.vert.spv"
	defaultFragShaderPath = "assets/shaders/default.frag.spv"
)

// VulkanRenderer is the graphics backend. It owns the Vulkan objects,
// the frame ring and the draw state, and records one frame at a time
// between Present calls.
type VulkanRenderer struct {
	platform *platform.Platform
	cfg      *config.Config

	vsync        config.VSyncMode
	debug        bool
	gammaCorrect bool

	context *VulkanContext

	ring   frameRing
	states *stateStack
	binder pipelineBinder

	// stats accumulates over the recording frame; lastStats is the
	// snapshot of the last presented one.
	stats      metadata.APIStats
	lastStats  metadata.APIStats
	lastShader *VulkanShader

	// deferredErr holds the first failure reported by a void state
	// mutator until the next Present surfaces it.
	deferredErr error

	quadIndexBuffer     *VulkanBuffer
	constantColorBuffer *VulkanBuffer

	// Stream buffers are per frame slot so the CPU can fill slot K
	// while the GPU still reads slot K-1.
	vertexStreams     [MaxFramesInFlight]*VulkanStreamBuffer
	quadVertexStreams [MaxFramesInFlight]*VulkanStreamBuffer
	indexStreams      [MaxFramesInFlight]*VulkanStreamBuffer

	batch quadBatcher

	defaultTexture *VulkanTexture
	defaultShader  *VulkanShader

	currentRenderPass *VulkanRenderpass
	renderTarget      *VulkanTexture
	viewportWidth     uint32
	viewportHeight    uint32
	transform         math.Mat4
	projection        math.Mat4
	dpiScale          float32

	// Per swapchain image, the fence of the frame that last rendered
	// to it.
	imagesInFlight []vk.Fence

	framebufferResized bool
	active             bool
	created            bool
	// frameOpen is true while a frame is recording. It drops to false
	// when acquiring fails with a zero-sized drawable, and Present
	// retries the open instead of surfacing an error.
	frameOpen bool
}

func New(p *platform.Platform, cfg *config.Config) (*VulkanRenderer, error) {
	vsync, err := cfg.VSyncMode()
	if err != nil {
		return nil, err
	}
	vr := &VulkanRenderer{
		platform:     p,
		cfg:          cfg,
		vsync:        vsync,
		debug:        cfg.Renderer.Validation,
		gammaCorrect: cfg.Renderer.GammaCorrect,
		states:       newStateStack(),
		transform:    math.NewMat4Identity(),
		dpiScale:     1,
	}
	vr.context = &VulkanContext{}
	vr.context.renderPassCache = newRenderPassCache(vr.buildRenderPass)
	vr.context.framebufferCache = newFramebufferCache(vr.buildFramebuffer)
	vr.context.pipelineCache = newPipelineCache(vr.buildPipeline)
	vr.context.samplerCache = newSamplerCache(vr.buildSampler)
	return vr, nil
}

// Initialize brings the whole backend up: instance, device, swapchain
// and the builtin resources, then starts recording the first frame.
func (vr *VulkanRenderer) Initialize() error {
	if err := vr.createInstance(); err != nil {
		return err
	}

	surface, err := vr.platform.CreateSurface(vr.context.Instance)
	if err != nil {
		return err
	}
	vr.context.Surface = surface

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}
	vr.dpiScale = vr.platform.DPIScale()

	drawableWidth, drawableHeight := vr.platform.DrawableSize()
	swapchain, err := SwapchainCreate(vr.context, vr.vsync, drawableWidth, drawableHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = swapchain
	vr.imagesInFlight = make([]vk.Fence, len(swapchain.Images))

	if err := vr.createFrameSlots(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createQuadIndexBuffer(); err != nil {
		return err
	}
	if err := vr.createBatchedDrawBuffers(); err != nil {
		return err
	}
	if err := vr.createDefaultTexture(); err != nil {
		return err
	}
	if vr.defaultShader, err = vr.NewShader(defaultVertShaderPath, defaultFragShaderPath); err != nil {
		return err
	}

	vr.platform.OnResize(vr.Resized)
	vr.active = true
	vr.created = true

	if err := vr.beginFrame(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized on %s.", vr.context.Device.DeviceName)
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	// TODO: custom allocator.
	vr.context.Allocator = nil

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.cfg.Window.Title),
		PEngineName:        VulkanSafeString("Lumen Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.RequiredInstanceExtensions()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	validationLayers := []string{}
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
			return vkError("failed to enumerate instance layers", res)
		}
		availableLayers := make([]vk.LayerProperties, availableCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableCount, availableLayers); res != vk.Success {
			return vkError("failed to enumerate instance layers", res)
		}

		for _, want := range validationLayers {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if want == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", want)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		return vkError("failed to create instance", res)
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			return vkError("failed to create debug report callback", res)
		}
		vr.context.debugMessenger = dbg
	}
	return nil
}

// SetActive pauses or resumes presentation, typically while the
// window is minimized. Draws issued while inactive are dropped and
// Present becomes a no-op.
func (vr *VulkanRenderer) SetActive(active bool) {
	vr.active = active
}

// Active reports whether frames are actually being presented. False
// while deactivated or while the drawable area is zero.
func (vr *VulkanRenderer) Active() bool {
	return vr.recordingFrame()
}

// recordingFrame reports whether draw commands can be recorded right
// now. Draws issued outside a recording frame are dropped.
func (vr *VulkanRenderer) recordingFrame() bool {
	return vr.active && vr.frameOpen
}

// latchError keeps the first failure reported by a void mutator so
// the next Present can surface it.
func (vr *VulkanRenderer) latchError(err error) {
	if err != nil && vr.deferredErr == nil {
		vr.deferredErr = err
	}
}

func (vr *VulkanRenderer) takeLatchedError() error {
	err := vr.deferredErr
	vr.deferredErr = nil
	return err
}

// Resized flags the swapchain for recreation at the next frame
// boundary.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.framebufferResized = true
}

// SetVSync applies a new presentation pacing mode. The swapchain is
// recreated at the next frame boundary.
func (vr *VulkanRenderer) SetVSync(mode config.VSyncMode) {
	if mode == vr.vsync {
		return
	}
	vr.vsync = mode
	vr.framebufferResized = true
}

// RendererInfo describes the backend and the device it runs on.
func (vr *VulkanRenderer) RendererInfo() metadata.RendererInfo {
	device := vr.context.Device
	return metadata.RendererInfo{
		Name:    "Vulkan",
		Version: apiVersionString(device.APIVersion),
		Vendor:  vendorName(device.VendorID),
		Device:  device.DeviceName,
	}
}

// APIStats reports the counters of the last presented frame.
func (vr *VulkanRenderer) APIStats() metadata.APIStats {
	return vr.lastStats
}

// Capabilities reports the device limits of the selected adapter.
func (vr *VulkanRenderer) Capabilities() metadata.Capabilities {
	device := vr.context.Device
	return metadata.Capabilities{
		MaxTextureSize: device.MaxTextureSize,
		PointSizeMin:   device.PointSizeRange[0],
		PointSizeMax:   device.PointSizeRange[1],
		MaxAnisotropy:  device.MaxSamplerAnisotropy,
	}
}

// Present finishes the recording frame, submits it, queues the image
// for presentation and starts recording the next frame. A no-op while
// the backend is inactive; pending batched draws are dropped.
func (vr *VulkanRenderer) Present() error {
	if !vr.active {
		vr.batch = quadBatcher{}
		return nil
	}
	if err := vr.takeLatchedError(); err != nil {
		return err
	}
	if !vr.frameOpen {
		// The last open attempt found a zero-sized drawable. Drop
		// whatever was queued and try to open a frame again.
		vr.batch = quadBatcher{}
		return vr.beginFrame()
	}
	if err := vr.flushBatchedDraws(); err != nil {
		return err
	}

	slot := vr.ring.slot()
	vr.endRenderPass()

	// Hand the image to the presentation engine.
	transitionImageLayout(slot.commands.Handle,
		vr.context.Swapchain.Images[vr.context.ImageIndex],
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc)

	if err := slot.transfer.End(); err != nil {
		return err
	}
	if err := slot.commands.End(); err != nil {
		return err
	}

	// The acquired image may still be referenced by an earlier frame.
	imageIndex := vr.context.ImageIndex
	if vr.imagesInFlight[imageIndex] != vk.NullFence {
		vk.WaitForFences(vr.context.Device.LogicalDevice, 1,
			[]vk.Fence{vr.imagesInFlight[imageIndex]}, vk.True, gomath.MaxUint64)
	}
	vr.imagesInFlight[imageIndex] = slot.inFlight.Handle

	if err := slot.inFlight.ResetFence(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   2,
		PCommandBuffers:      []vk.CommandBuffer{slot.transfer.Handle, slot.commands.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.renderFinished},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.inFlight.Handle); res != vk.Success {
		return vkError("queue submit failed", res)
	}
	slot.transfer.UpdateSubmitted()
	slot.commands.UpdateSubmitted()

	err := vr.context.Swapchain.Present(vr.context, vr.context.Device.PresentQueue, slot.renderFinished, imageIndex)
	if err != nil && err != core.ErrSwapchainBooting {
		return err
	}
	if err == core.ErrSwapchainBooting || vr.framebufferResized {
		vr.framebufferResized = false
		// A zero-sized drawable defers the recreation to a later frame
		// boundary; the condition is not an error for the caller.
		if err := vr.recreateSwapchain(); err != nil && err != core.ErrSwapchainBooting {
			return err
		}
	}

	vr.lastStats = vr.stats
	vr.stats = metadata.APIStats{}

	vr.ring.advance()
	return vr.beginFrame()
}

// beginFrame waits for the incoming frame slot, reclaims its
// resources, acquires a swapchain image and opens the render pass.
// When the drawable area is zero the frame stays closed and no error
// is returned; Present retries the open on its next call.
func (vr *VulkanRenderer) beginFrame() error {
	vr.frameOpen = false
	slot := vr.ring.slot()

	if err := slot.inFlight.Wait(vr.context); err != nil {
		return err
	}
	slot.drainReleases(vr.releaseResource)
	vr.nextFrameStreams()
	vr.lastShader = nil

	// Acquiring can outdate the swapchain at any time, for example
	// mid-resize. Recreate and retry until an image comes back.
	var imageIndex uint32
	for {
		index, err := vr.context.Swapchain.AcquireNextImageIndex(vr.context, gomath.MaxUint64, slot.imageAvailable)
		if err == nil {
			imageIndex = index
			break
		}
		if err != core.ErrSwapchainBooting {
			return err
		}
		if err := vr.recreateSwapchain(); err != nil {
			if err == core.ErrSwapchainBooting {
				// Minimized; nothing to render into until the window
				// comes back.
				return nil
			}
			return err
		}
	}
	vr.context.ImageIndex = imageIndex

	slot.transfer.Reset()
	if err := slot.transfer.Begin(true, false, false); err != nil {
		return err
	}
	slot.commands.Reset()
	if err := slot.commands.Begin(true, false, false); err != nil {
		return err
	}

	// Fresh swapchain images start undefined; the render pass expects
	// a color attachment.
	transitionImageLayout(slot.commands.Handle,
		vr.context.Swapchain.Images[imageIndex],
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)

	vr.renderTarget = nil
	if err := vr.startRenderPass(); err != nil {
		return err
	}
	vr.frameOpen = true
	return nil
}

// recreateSwapchain rebuilds the swapchain for the current drawable
// size. Only framebuffers are dropped from the caches; render passes,
// pipelines and samplers do not depend on swapchain objects.
func (vr *VulkanRenderer) recreateSwapchain() error {
	if vr.context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}
	drawableWidth, drawableHeight := vr.platform.DrawableSize()
	if drawableWidth == 0 || drawableHeight == 0 {
		vr.framebufferResized = true
		return core.ErrSwapchainBooting
	}
	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); res != vk.Success {
		return vkError("device wait idle failed during swapchain recreation", res)
	}

	vr.context.framebufferCache.clear(vr.destroyFramebuffer)
	vr.context.Swapchain.Destroy(vr.context)

	swapchain, err := SwapchainCreate(vr.context, vr.vsync, drawableWidth, drawableHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = swapchain
	vr.imagesInFlight = make([]vk.Fence, len(swapchain.Images))
	vr.dpiScale = vr.platform.DPIScale()
	return nil
}

// Shutdown tears the backend down in reverse creation order. Safe to
// call once after a failed Initialize as well.
func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}
	vr.active = false

	if vr.defaultShader != nil {
		vr.defaultShader.destroy(vr.context)
		vr.defaultShader = nil
	}
	if vr.defaultTexture != nil {
		vr.defaultTexture.destroy(vr.context)
		vr.defaultTexture = nil
	}
	vr.destroyBatchedDrawBuffers()
	if vr.quadIndexBuffer != nil {
		vr.quadIndexBuffer.destroy(vr.context)
		vr.quadIndexBuffer = nil
	}

	vr.destroyFrameSlots()

	vr.context.pipelineCache.clear(vr.destroyPipeline)
	vr.context.framebufferCache.clear(vr.destroyFramebuffer)
	vr.context.renderPassCache.clear(vr.destroyRenderPass)
	vr.context.samplerCache.clear(vr.destroySampler)

	if vr.context.Swapchain != nil {
		vr.context.Swapchain.Destroy(vr.context)
		vr.context.Swapchain = nil
	}
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		DeviceDestroy(vr.context)
	}
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}
	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}
	if vr.context.Instance != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}

	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32,
	pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogInfo("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}
