package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestRenderPassCacheIdempotent(t *testing.T) {
	builds := 0
	cache := newRenderPassCache(func(key RenderPassKey) (*VulkanRenderpass, error) {
		builds++
		return &VulkanRenderpass{Format: key.Format}, nil
	})

	key := RenderPassKey{Format: vk.FormatB8g8r8a8Unorm}
	first, err := cache.resolve(key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := cache.resolve(key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first != second {
		t.Error("same key resolved to different render passes")
	}
	if builds != 1 {
		t.Errorf("builder ran %d times, want 1", builds)
	}

	other, _ := cache.resolve(RenderPassKey{Format: vk.FormatR8g8b8a8Unorm})
	if other == first {
		t.Error("distinct keys resolved to the same render pass")
	}
	if builds != 2 {
		t.Errorf("builder ran %d times, want 2", builds)
	}
}

func TestPipelineCacheKeyedByConfiguration(t *testing.T) {
	builds := 0
	cache := newPipelineCache(func(key PipelineKey) (*VulkanPipeline, error) {
		builds++
		return &VulkanPipeline{}, nil
	})

	var attrs metadata.VertexAttributes
	attrs.Set(metadata.AttribPosition, metadata.VertexFormatVec2, 0, 0)
	attrs.SetLayout(0, 8)

	key := PipelineKey{
		Attributes:     attrs,
		Topology:       metadata.TopologyTriangles,
		Blend:          metadata.BlendAlpha(),
		ColorMask:      metadata.ColorMaskAll(),
		ViewportWidth:  800,
		ViewportHeight: 600,
	}

	a, _ := cache.resolve(key)
	b, _ := cache.resolve(key)
	if a != b || builds != 1 {
		t.Fatalf("identical keys should share one pipeline (builds=%d)", builds)
	}

	// Any structural difference is a different pipeline.
	blended := key
	blended.Blend.Enable = false
	c, _ := cache.resolve(blended)
	if c == a {
		t.Error("different blend state resolved to the same pipeline")
	}

	resized := key
	resized.ViewportHeight = 601
	d, _ := cache.resolve(resized)
	if d == a || d == c {
		t.Error("different viewport resolved to an existing pipeline")
	}

	if builds != 3 {
		t.Errorf("builder ran %d times, want 3", builds)
	}
}

func TestFramebufferCacheClearLeavesOthersAlone(t *testing.T) {
	fbBuilds := 0
	fbCache := newFramebufferCache(func(key FramebufferKey) (*VulkanFramebuffer, error) {
		fbBuilds++
		return &VulkanFramebuffer{Width: key.Width, Height: key.Height}, nil
	})
	rpBuilds := 0
	rpCache := newRenderPassCache(func(key RenderPassKey) (*VulkanRenderpass, error) {
		rpBuilds++
		return &VulkanRenderpass{Format: key.Format}, nil
	})

	rp, _ := rpCache.resolve(RenderPassKey{Format: vk.FormatB8g8r8a8Unorm})
	fbKey := FramebufferKey{Width: 640, Height: 480}
	fbCache.resolve(fbKey)

	// Swapchain recreation drops framebuffers but keeps render
	// passes.
	destroyed := 0
	fbCache.clear(func(*VulkanFramebuffer) { destroyed++ })
	if destroyed != 1 {
		t.Fatalf("destroyed %d framebuffers, want 1", destroyed)
	}

	fbCache.resolve(fbKey)
	if fbBuilds != 2 {
		t.Errorf("framebuffer rebuilt %d times, want 2", fbBuilds)
	}

	again, _ := rpCache.resolve(RenderPassKey{Format: vk.FormatB8g8r8a8Unorm})
	if again != rp || rpBuilds != 1 {
		t.Error("render pass cache should survive framebuffer clear")
	}
}

func TestSamplerCacheKeys(t *testing.T) {
	builds := 0
	cache := newSamplerCache(func(SamplerKey) (*VulkanSampler, error) {
		builds++
		return &VulkanSampler{}, nil
	})

	linear := SamplerKey{MinFilter: FilterLinear, MagFilter: FilterLinear, WrapU: WrapRepeat, WrapV: WrapRepeat}
	a, _ := cache.resolve(linear)
	b, _ := cache.resolve(linear)
	if a != b || builds != 1 {
		t.Fatalf("identical sampler keys should share one sampler")
	}

	nearest := linear
	nearest.MagFilter = FilterNearest
	c, _ := cache.resolve(nearest)
	if c == a {
		t.Error("different filter resolved to the same sampler")
	}
}

func TestPipelineBinderSuppressesRedundantBinds(t *testing.T) {
	var binder pipelineBinder
	p1 := &VulkanPipeline{}
	p2 := &VulkanPipeline{}

	if !binder.requires(p1) {
		t.Fatal("first bind must be issued")
	}
	if binder.requires(p1) {
		t.Fatal("rebinding the same pipeline must be suppressed")
	}
	if !binder.requires(p2) {
		t.Fatal("binding a different pipeline must be issued")
	}
	if binder.binds != 2 {
		t.Fatalf("binds = %d, want 2", binder.binds)
	}

	// A new render pass clears the bound pipeline.
	binder.reset()
	if !binder.requires(p2) {
		t.Fatal("bind after reset must be issued")
	}
}
