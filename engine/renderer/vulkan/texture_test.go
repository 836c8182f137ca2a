package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestFrameTransferRecording(t *testing.T) {
	vr := &VulkanRenderer{states: newStateStack()}

	if vr.frameTransferRecording() {
		t.Fatal("transfer must not be considered open before the backend is created")
	}

	vr.created = true
	if vr.frameTransferRecording() {
		t.Fatal("transfer must not be considered open without a command buffer")
	}

	vr.ring.slot().transfer = &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_RECORDING}
	if !vr.frameTransferRecording() {
		t.Fatal("a recording transfer command buffer should take in-frame uploads")
	}

	// Between End and the next Begin the uploads fall back to the
	// blocking path.
	vr.ring.slot().transfer.State = COMMAND_BUFFER_STATE_SUBMITTED
	if vr.frameTransferRecording() {
		t.Fatal("a submitted transfer command buffer must not take uploads")
	}
}

func TestSamplerCreateInfo(t *testing.T) {
	key := SamplerKey{
		MinFilter: FilterNearest,
		MagFilter: FilterLinear,
		WrapU:     WrapRepeat,
		WrapV:     WrapMirroredRepeat,
	}
	info := samplerCreateInfo(key, 16)

	if info.MinFilter != vk.FilterNearest || info.MagFilter != vk.FilterLinear {
		t.Error("filters did not translate")
	}
	if info.AddressModeU != vk.SamplerAddressModeRepeat || info.AddressModeV != vk.SamplerAddressModeMirroredRepeat {
		t.Error("wrap modes did not translate")
	}
	if info.AddressModeW != vk.SamplerAddressModeClampToEdge {
		t.Error("the W axis of a 2D sampler should always clamp")
	}
	if info.AnisotropyEnable == vk.True {
		t.Error("anisotropy should stay off for an unset key")
	}

	key.Anisotropy = 8
	info = samplerCreateInfo(key, 16)
	if info.AnisotropyEnable != vk.True || info.MaxAnisotropy != 8 {
		t.Errorf("anisotropy = %v/%g, want enabled at 8", info.AnisotropyEnable, info.MaxAnisotropy)
	}

	// The device limit caps the request.
	info = samplerCreateInfo(key, 4)
	if info.MaxAnisotropy != 4 {
		t.Errorf("anisotropy = %g, want the device limit 4", info.MaxAnisotropy)
	}
}
