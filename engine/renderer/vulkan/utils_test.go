package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestVulkanSafeString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "\x00"},
		{"VK_KHR_surface", "VK_KHR_surface\x00"},
		{"already\x00", "already\x00"},
	}
	for _, tc := range cases {
		if got := VulkanSafeString(tc.in); got != tc.want {
			t.Errorf("VulkanSafeString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("VulkanResultString(ErrorOutOfDate) = %q", got)
	}
	if got := VulkanResultString(vk.Result(-12345)); got != "VK_RESULT(-12345)" {
		t.Errorf("unknown result = %q", got)
	}
}

func TestSliceUint32(t *testing.T) {
	// SPIR-V magic number in little-endian bytes.
	data := []byte{0x03, 0x02, 0x23, 0x07}
	words := sliceUint32(data)
	if len(words) != 1 || words[0] != 0x07230203 {
		t.Fatalf("sliceUint32 = %#v", words)
	}
	if sliceUint32(nil) != nil {
		t.Error("sliceUint32(nil) should be nil")
	}
}

func TestVendorName(t *testing.T) {
	if vendorName(0x10DE) != "NVIDIA" {
		t.Error("0x10DE should map to NVIDIA")
	}
	if vendorName(0x8086) != "Intel" {
		t.Error("0x8086 should map to Intel")
	}
	if got := vendorName(0xBEEF); got != "unknown (0xBEEF)" {
		t.Errorf("unknown vendor = %q", got)
	}
}

func TestAPIVersionString(t *testing.T) {
	packed := uint32(1)<<22 | uint32(3)<<12 | 250
	if got := apiVersionString(packed); got != "1.3.250" {
		t.Errorf("apiVersionString = %q", got)
	}
}
