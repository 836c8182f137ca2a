package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// The object caches resolve immutable GPU objects by structural key.
// A hit returns the cached object, a miss builds and stores it.
// Nothing is evicted before teardown; only the framebuffer cache is
// cleared when the swapchain is recreated, since its entries
// reference swapchain image views.

type RenderPassKey struct {
	Format vk.Format
}

type FramebufferKey struct {
	RenderPass vk.RenderPass
	View       vk.ImageView
	Width      uint32
	Height     uint32
}

type SamplerKey struct {
	MinFilter  FilterMode
	MagFilter  FilterMode
	WrapU      WrapMode
	WrapV      WrapMode
	Anisotropy uint8
}

// PipelineKey is every input that influences graphics pipeline
// construction. It is comparable so structurally identical draw
// configurations map to the same pipeline.
type PipelineKey struct {
	RenderPass     vk.RenderPass
	Shader         *VulkanShader
	Attributes     metadata.VertexAttributes
	Topology       metadata.PrimitiveTopology
	Wireframe      bool
	Blend          metadata.BlendState
	ColorMask      metadata.ColorMask
	Winding        metadata.Winding
	CullMode       metadata.FaceCullMode
	ViewportWidth  uint32
	ViewportHeight uint32
	Scissor        metadata.ScissorState
}

type renderPassCache struct {
	entries map[RenderPassKey]*VulkanRenderpass
	build   func(RenderPassKey) (*VulkanRenderpass, error)
}

func newRenderPassCache(build func(RenderPassKey) (*VulkanRenderpass, error)) *renderPassCache {
	return &renderPassCache{
		entries: make(map[RenderPassKey]*VulkanRenderpass),
		build:   build,
	}
}

func (c *renderPassCache) resolve(key RenderPassKey) (*VulkanRenderpass, error) {
	if rp, ok := c.entries[key]; ok {
		return rp, nil
	}
	rp, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = rp
	return rp, nil
}

func (c *renderPassCache) clear(destroy func(*VulkanRenderpass)) {
	for _, rp := range c.entries {
		destroy(rp)
	}
	c.entries = make(map[RenderPassKey]*VulkanRenderpass)
}

type framebufferCache struct {
	entries map[FramebufferKey]*VulkanFramebuffer
	build   func(FramebufferKey) (*VulkanFramebuffer, error)
}

func newFramebufferCache(build func(FramebufferKey) (*VulkanFramebuffer, error)) *framebufferCache {
	return &framebufferCache{
		entries: make(map[FramebufferKey]*VulkanFramebuffer),
		build:   build,
	}
}

func (c *framebufferCache) resolve(key FramebufferKey) (*VulkanFramebuffer, error) {
	if fb, ok := c.entries[key]; ok {
		return fb, nil
	}
	fb, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = fb
	return fb, nil
}

func (c *framebufferCache) clear(destroy func(*VulkanFramebuffer)) {
	for _, fb := range c.entries {
		destroy(fb)
	}
	c.entries = make(map[FramebufferKey]*VulkanFramebuffer)
}

type pipelineCache struct {
	entries map[PipelineKey]*VulkanPipeline
	build   func(PipelineKey) (*VulkanPipeline, error)
}

func newPipelineCache(build func(PipelineKey) (*VulkanPipeline, error)) *pipelineCache {
	return &pipelineCache{
		entries: make(map[PipelineKey]*VulkanPipeline),
		build:   build,
	}
}

func (c *pipelineCache) resolve(key PipelineKey) (*VulkanPipeline, error) {
	if p, ok := c.entries[key]; ok {
		return p, nil
	}
	p, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = p
	return p, nil
}

func (c *pipelineCache) clear(destroy func(*VulkanPipeline)) {
	for _, p := range c.entries {
		destroy(p)
	}
	c.entries = make(map[PipelineKey]*VulkanPipeline)
}

type samplerCache struct {
	entries map[SamplerKey]*VulkanSampler
	build   func(SamplerKey) (*VulkanSampler, error)
}

func newSamplerCache(build func(SamplerKey) (*VulkanSampler, error)) *samplerCache {
	return &samplerCache{
		entries: make(map[SamplerKey]*VulkanSampler),
		build:   build,
	}
}

func (c *samplerCache) resolve(key SamplerKey) (*VulkanSampler, error) {
	if s, ok := c.entries[key]; ok {
		return s, nil
	}
	s, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = s
	return s, nil
}

func (c *samplerCache) clear(destroy func(*VulkanSampler)) {
	for _, s := range c.entries {
		destroy(s)
	}
	c.entries = make(map[SamplerKey]*VulkanSampler)
}

// pipelineBinder suppresses redundant pipeline binds. A bind is
// issued only when the resolved pipeline differs from the one bound
// last, and the tracking resets whenever a render pass begins.
type pipelineBinder struct {
	bound *VulkanPipeline
	binds int
}

// requires records p as bound and reports whether a bind command
// must actually be issued.
func (b *pipelineBinder) requires(p *VulkanPipeline) bool {
	if p == b.bound {
		return false
	}
	b.bound = p
	b.binds++
	return true
}

// reset forgets the bound pipeline. Bind state does not survive a
// render pass boundary.
func (b *pipelineBinder) reset() {
	b.bound = nil
}
