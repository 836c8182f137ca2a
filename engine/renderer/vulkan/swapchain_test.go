package vulkan

import (
	gomath "math"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/config"
)

func TestChoosePresentModeCascade(t *testing.T) {
	all := []vk.PresentMode{
		vk.PresentModeImmediate,
		vk.PresentModeMailbox,
		vk.PresentModeFifo,
		vk.PresentModeFifoRelaxed,
	}

	cases := []struct {
		name      string
		vsync     config.VSyncMode
		available []vk.PresentMode
		want      vk.PresentMode
	}{
		{"adaptive picks relaxed fifo", config.VSyncAdaptive, all, vk.PresentModeFifoRelaxed},
		{"adaptive falls back to mailbox", config.VSyncAdaptive,
			[]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}, vk.PresentModeMailbox},
		{"adaptive falls back to immediate", config.VSyncAdaptive,
			[]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeImmediate},
		{"on picks mailbox", config.VSyncOn, all, vk.PresentModeMailbox},
		{"on falls back to immediate", config.VSyncOn,
			[]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeImmediate},
		{"off picks immediate", config.VSyncOff, all, vk.PresentModeImmediate},
		{"fifo is the final fallback", config.VSyncOff,
			[]vk.PresentMode{vk.PresentModeFifo}, vk.PresentModeFifo},
		{"on with only fifo", config.VSyncOn,
			[]vk.PresentMode{vk.PresentModeFifo}, vk.PresentModeFifo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := chooseSwapPresentMode(tc.vsync, tc.available); got != tc.want {
				t.Errorf("chooseSwapPresentMode(%d) = %d, want %d", tc.vsync, got, tc.want)
			}
		})
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}); got != preferred {
		t.Errorf("preferred format not chosen: %+v", got)
	}
	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other}); got != other {
		t.Errorf("fallback should be the first offered format, got %+v", got)
	}
}

func TestChooseSwapExtent(t *testing.T) {
	t.Run("fixed current extent wins", func(t *testing.T) {
		caps := vk.SurfaceCapabilities{
			CurrentExtent: vk.Extent2D{Width: 800, Height: 600},
		}
		got := chooseSwapExtent(caps, 1024, 768)
		if got.Width != 800 || got.Height != 600 {
			t.Errorf("extent = %+v, want 800x600", got)
		}
	})

	t.Run("sentinel uses clamped drawable size", func(t *testing.T) {
		caps := vk.SurfaceCapabilities{
			CurrentExtent:  vk.Extent2D{Width: gomath.MaxUint32, Height: gomath.MaxUint32},
			MinImageExtent: vk.Extent2D{Width: 200, Height: 200},
			MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
		}
		got := chooseSwapExtent(caps, 1920, 100)
		if got.Width != 1000 || got.Height != 200 {
			t.Errorf("extent = %+v, want 1000x200", got)
		}
	})
}

func TestSurfaceRotation(t *testing.T) {
	cases := []struct {
		transform vk.SurfaceTransformFlagBits
		angle     float32
		swaps     bool
	}{
		{vk.SurfaceTransformIdentityBit, 0, false},
		{vk.SurfaceTransformRotate90Bit, float32(-gomath.Pi / 2), true},
		{vk.SurfaceTransformRotate180Bit, float32(-gomath.Pi), false},
		{vk.SurfaceTransformRotate270Bit, float32(-3 * gomath.Pi / 2), true},
	}
	for _, tc := range cases {
		if got := surfaceRotationAngle(tc.transform); got != tc.angle {
			t.Errorf("surfaceRotationAngle(%d) = %g, want %g", tc.transform, got, tc.angle)
		}
		if got := swapsExtent(tc.transform); got != tc.swaps {
			t.Errorf("swapsExtent(%d) = %v, want %v", tc.transform, got, tc.swaps)
		}
	}
}
