package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures

	// Device limits the rest of the backend needs at draw time.
	MinUniformBufferOffsetAlignment vk.DeviceSize
	MaxTextureSize                  uint32
	PointSizeRange                  [2]float32
	MaxSamplerAnisotropy            float32

	DeviceName string
	VendorID   uint32
	APIVersion uint32
}

type vulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// DeviceCreate picks the best physical device and builds the logical
// device, queues and the graphics command pool on top of it.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	device := context.Device

	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := device.GraphicsQueueIndex == device.PresentQueueIndex
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	// Both features were required during device selection.
	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
		FillModeNonSolid:  vk.True,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if portabilitySubsetPresent(device.PhysicalDevice) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &device.PresentQueue)
	core.LogInfo("Queues obtained.")

	// Command buffers are reset every frame and short lived.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit) |
			vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &device.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device

	device.GraphicsQueue = nil
	device.PresentQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
}

// DeviceQuerySwapchainSupport refreshes the surface capabilities,
// formats and present modes for the device.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		err := fmt.Errorf("failed to get surface capabilities with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	supportInfo.Capabilities.Deref()

	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get surface format count with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if supportInfo.FormatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats); res != vk.Success {
			err := fmt.Errorf("failed to get surface formats with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get present mode count with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if supportInfo.PresentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes); res != vk.Success {
			err := fmt.Errorf("failed to get present modes with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrNoSuitableGPU
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	bestScore := 0
	var bestQueueInfo vulkanPhysicalDeviceQueueFamilyInfo
	var bestSupport VulkanSwapchainSupportInfo
	var bestDevice vk.PhysicalDevice

	for _, candidate := range physicalDevices {
		var queueInfo vulkanPhysicalDeviceQueueFamilyInfo
		var support VulkanSwapchainSupportInfo
		score := rateDeviceSuitability(candidate, context.Surface, &queueInfo, &support)
		if score > bestScore {
			bestScore = score
			bestQueueInfo = queueInfo
			bestSupport = support
			bestDevice = candidate
		}
	}

	if bestScore == 0 {
		core.LogError("No physical device met the requirements.")
		return core.ErrNoSuitableGPU
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(bestDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(bestDevice, &features)
	features.Deref()

	end := FindFirstZeroInByteArray(properties.DeviceName[:])
	device := &VulkanDevice{
		PhysicalDevice:     bestDevice,
		GraphicsQueueIndex: bestQueueInfo.GraphicsFamilyIndex,
		PresentQueueIndex:  bestQueueInfo.PresentFamilyIndex,
		SwapchainSupport:   bestSupport,
		Properties:         properties,
		Features:           features,

		MinUniformBufferOffsetAlignment: properties.Limits.MinUniformBufferOffsetAlignment,
		MaxTextureSize:                  properties.Limits.MaxImageDimension2D,
		PointSizeRange:                  properties.Limits.PointSizeRange,
		MaxSamplerAnisotropy:            properties.Limits.MaxSamplerAnisotropy,

		DeviceName: vk.ToString(properties.DeviceName[:end]),
		VendorID:   properties.VendorID,
		APIVersion: properties.ApiVersion,
	}
	context.Device = device

	core.LogInfo("Selected device: '%s' (score %d).", device.DeviceName, bestScore)
	core.LogInfo("GPU Driver version: %s.", apiVersionString(properties.DriverVersion))
	core.LogInfo("Vulkan API version: %s.", apiVersionString(properties.ApiVersion))
	return nil
}

// rateDeviceSuitability scores a candidate adapter. Devices missing
// a required queue, extension, surface support or feature score 0.
// Preferred hardware classes raise the score so a discrete GPU beats
// an integrated one, which beats a virtual one.
func rateDeviceSuitability(device vk.PhysicalDevice, surface vk.Surface, outQueueInfo *vulkanPhysicalDeviceQueueFamilyInfo, outSupport *VulkanSwapchainSupportInfo) int {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	score := 1
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		score += 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		score += 100
	case vk.PhysicalDeviceTypeVirtualGpu:
		score += 10
	}

	queueInfo, ok := findQueueFamilies(device, surface)
	if !ok {
		return 0
	}
	*outQueueInfo = queueInfo

	if !deviceExtensionSupported(device, vk.KhrSwapchainExtensionName) {
		return 0
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSupport); err != nil {
		return 0
	}
	if outSupport.FormatCount == 0 || outSupport.PresentModeCount == 0 {
		return 0
	}

	if features.SamplerAnisotropy != vk.True {
		return 0
	}
	if features.FillModeNonSolid != vk.True {
		return 0
	}

	return score
}

func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (vulkanPhysicalDeviceQueueFamilyInfo, bool) {
	info := vulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()

		if info.GraphicsFamilyIndex == -1 && vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			info.GraphicsFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); res == vk.Success && supportsPresent == vk.True {
			if info.PresentFamilyIndex == -1 {
				info.PresentFamilyIndex = int32(i)
			}
		}
	}

	return info, info.GraphicsFamilyIndex != -1 && info.PresentFamilyIndex != -1
}

func deviceExtensionSupported(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return false
	}
	if count == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		end := FindFirstZeroInByteArray(extensions[i].ExtensionName[:])
		if vk.ToString(extensions[i].ExtensionName[:end]) == name {
			return true
		}
	}
	return false
}

func portabilitySubsetPresent(device vk.PhysicalDevice) bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	return deviceExtensionSupported(device, "VK_KHR_portability_subset")
}
