package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanFence struct {
	Handle vk.Fence
}

// NewFence creates a fence, signaled when requested so the first
// wait on a fresh frame slot returns immediately.
func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := fmt.Errorf("failed to create fence with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: pFence}, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
}

// Wait blocks until the fence signals.
func (vf *VulkanFence) Wait(context *VulkanContext) error {
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, math.MaxUint64)
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		core.LogWarn("fence wait timed out")
	case vk.ErrorDeviceLost:
		core.LogError("fence wait failed, device lost")
	default:
		core.LogError("fence wait failed with `%s`", VulkanResultString(result))
	}
	return fmt.Errorf("fence wait failed with `%s`", VulkanResultString(result))
}

func (vf *VulkanFence) ResetFence(context *VulkanContext) error {
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}
