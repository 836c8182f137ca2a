package testbed

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

const (
	checkerSize  = 64
	checkerCells = 8
)

// Scene is a small exercise of the renderer: a cleared background, a
// grid of batched quads sampling a generated checkerboard, and an
// offscreen pass composited back onto the screen.
type Scene struct {
	checker *vulkan.VulkanTexture
	canvas  *vulkan.VulkanTexture

	elapsed float64
}

func New() *Scene {
	return &Scene{}
}

func (s *Scene) Initialize(r *vulkan.VulkanRenderer) error {
	checker, err := r.NewTexture(vulkan.TextureSettings{
		Width:     checkerSize,
		Height:    checkerSize,
		MinFilter: vulkan.FilterNearest,
		MagFilter: vulkan.FilterNearest,
		WrapU:     vulkan.WrapRepeat,
		WrapV:     vulkan.WrapRepeat,
	})
	if err != nil {
		return err
	}
	if err := checker.ReplacePixels(r, checkerPixels()); err != nil {
		return err
	}
	s.checker = checker

	canvas, err := r.NewTexture(vulkan.TextureSettings{
		Width:        256,
		Height:       256,
		RenderTarget: true,
		MinFilter:    vulkan.FilterLinear,
		MagFilter:    vulkan.FilterLinear,
		WrapU:        vulkan.WrapClampToEdge,
		WrapV:        vulkan.WrapClampToEdge,
	})
	if err != nil {
		return err
	}
	s.canvas = canvas
	return nil
}

func (s *Scene) Update(deltaTime float64) error {
	s.elapsed += deltaTime
	return nil
}

func (s *Scene) Render(r *vulkan.VulkanRenderer) error {
	// Offscreen pass: a pulsing quad into the canvas texture.
	if err := r.SetRenderTarget(s.canvas); err != nil {
		return err
	}
	if err := r.Clear(metadata.Color{R: 0.1, G: 0.1, B: 0.25, A: 1}); err != nil {
		return err
	}

	pulse := float32(0.5 + 0.5*gomath.Sin(s.elapsed*2))
	r.PushState()
	r.SetColor(metadata.Color{R: pulse, G: 0.4, B: 1 - pulse, A: 1})
	if err := r.BatchQuad(32, 32, 192, 192, s.checker); err != nil {
		return err
	}
	r.PopState()

	if err := r.SetRenderTarget(nil); err != nil {
		return err
	}
	if err := r.Clear(metadata.Color{R: 0.05, G: 0.05, B: 0.08, A: 1}); err != nil {
		return err
	}

	// A grid of batched quads, tinted per row. Same texture and state
	// per row, so each row collapses into few draw calls.
	for row := 0; row < 4; row++ {
		r.SetColor(metadata.Color{
			R: 0.4 + 0.15*float32(row),
			G: 1 - 0.2*float32(row),
			B: 0.6,
			A: 1,
		})
		for col := 0; col < 8; col++ {
			x := float32(40 + col*90)
			y := float32(40 + row*90)
			if err := r.BatchQuad(x, y, 80, 80, s.checker); err != nil {
				return err
			}
		}
	}
	r.SetColor(metadata.Color{R: 1, G: 1, B: 1, A: 1})

	// Composite the offscreen canvas, orbiting slowly.
	cx := float32(900 + 60*gomath.Cos(s.elapsed))
	cy := float32(300 + 60*gomath.Sin(s.elapsed))
	return r.BatchQuad(cx, cy, 256, 256, s.canvas)
}

func (s *Scene) Shutdown(r *vulkan.VulkanRenderer) {
	if s.canvas != nil {
		s.canvas.Release(r)
		s.canvas = nil
	}
	if s.checker != nil {
		s.checker.Release(r)
		s.checker = nil
	}
}

// checkerPixels generates the RGBA checkerboard sampled by the scene.
func checkerPixels() []byte {
	pixels := make([]byte, checkerSize*checkerSize*4)
	cell := checkerSize / checkerCells
	for y := 0; y < checkerSize; y++ {
		for x := 0; x < checkerSize; x++ {
			i := (y*checkerSize + x) * 4
			if (x/cell+y/cell)%2 == 0 {
				pixels[i+0] = 0xE6
				pixels[i+1] = 0xE6
				pixels[i+2] = 0xE6
			} else {
				pixels[i+0] = 0x40
				pixels[i+1] = 0x40
				pixels[i+2] = 0x48
			}
			pixels[i+3] = 0xFF
		}
	}
	return pixels
}
