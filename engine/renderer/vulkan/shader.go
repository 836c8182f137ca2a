package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
)

// builtinUniforms is the uniform block every shader receives. The
// unused W components of the normal matrix rows carry the current
// DPI scale and point size so the block stays one aligned chunk.
type builtinUniforms struct {
	Transform    math.Mat4
	Projection   math.Mat4
	NormalMatrix [3]math.Vec4
	ScreenSize   math.Vec4
	Color        math.Vec4
}

const builtinUniformsSize = int(unsafe.Sizeof(builtinUniforms{}))

// descriptorSetsPerFrame bounds how many draws with distinct
// descriptor state a single frame can issue.
const descriptorSetsPerFrame = 1024

// VulkanShader is a vertex/fragment program pair plus the descriptor
// plumbing to feed it uniforms and a texture.
type VulkanShader struct {
	ID string

	vertModule vk.ShaderModule
	fragModule vk.ShaderModule
	Stages     []vk.PipelineShaderStageCreateInfo

	DescriptorSetLayout vk.DescriptorSetLayout
	PipelineLayout      vk.PipelineLayout

	// Per-frame descriptor pools, reset when the slot is reused, and
	// per-frame uniform stream buffers.
	descriptorPools [MaxFramesInFlight]vk.DescriptorPool
	uniformBuffers  [MaxFramesInFlight]*VulkanStreamBuffer

	uniforms    builtinUniforms
	mainTexture *VulkanTexture
}

func loadShaderModule(context *VulkanContext, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read shader %s (run `mage build:shaders` to compile them): %w", path, err)
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	if len(code)%4 != 0 {
		err = fmt.Errorf("shader %s is not valid SPIR-V, size %d is not word aligned", path, len(code))
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return vk.NullShaderModule, vkError(fmt.Sprintf("failed to create shader module from %s", path), res)
	}
	return module, nil
}

// NewShader loads compiled SPIR-V for a vertex and fragment stage
// and builds the matching descriptor and pipeline layouts.
func (vr *VulkanRenderer) NewShader(vertPath, fragPath string) (*VulkanShader, error) {
	shader := &VulkanShader{
		ID: core.GenerateID(),
	}

	var err error
	if shader.vertModule, err = loadShaderModule(vr.context, vertPath); err != nil {
		return nil, err
	}
	if shader.fragModule, err = loadShaderModule(vr.context, fragPath); err != nil {
		shader.destroy(vr.context)
		return nil, err
	}

	shader.Stages = []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: shader.vertModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: shader.fragModule,
			PName:  VulkanSafeString("main"),
		},
	}

	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutInfo, vr.context.Allocator, &shader.DescriptorSetLayout); res != vk.Success {
		shader.destroy(vr.context)
		return nil, vkError("failed to create descriptor set layout", res)
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{shader.DescriptorSetLayout},
	}
	if res := vk.CreatePipelineLayout(vr.context.Device.LogicalDevice, &pipelineLayoutInfo, vr.context.Allocator, &shader.PipelineLayout); res != vk.Success {
		shader.destroy(vr.context)
		return nil, vkError("failed to create pipeline layout", res)
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: descriptorSetsPerFrame},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorSetsPerFrame},
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			PoolSizeCount: uint32(len(poolSizes)),
			PPoolSizes:    poolSizes,
			MaxSets:       descriptorSetsPerFrame,
		}
		if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolInfo, vr.context.Allocator, &shader.descriptorPools[i]); res != vk.Success {
			shader.destroy(vr.context)
			return nil, vkError("failed to create descriptor pool", res)
		}

		uniform, err := vr.NewStreamBuffer(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), 64<<10)
		if err != nil {
			shader.destroy(vr.context)
			return nil, err
		}
		shader.uniformBuffers[i] = uniform
	}

	return shader, nil
}

// SetUniforms stages the uniform block for the next descriptor push.
func (s *VulkanShader) SetUniforms(u builtinUniforms) {
	s.uniforms = u
}

// SetMainTexture stages the texture sampled by the fragment stage.
func (s *VulkanShader) SetMainTexture(t *VulkanTexture) {
	s.mainTexture = t
}

// PushDescriptorSets writes the staged uniforms into the frame's
// uniform stream buffer at a device-aligned offset, then allocates,
// updates and binds a descriptor set for this draw.
func (s *VulkanShader) PushDescriptorSets(vr *VulkanRenderer, cb vk.CommandBuffer, frame int) error {
	uniform := s.uniformBuffers[frame]

	data := unsafe.Slice((*byte)(unsafe.Pointer(&s.uniforms)), builtinUniformsSize)
	alignment := int(vr.context.Device.MinUniformBufferOffsetAlignment)
	if alignment == 0 {
		alignment = defaultUniformAlignment
	}
	offset, err := uniform.WriteAligned(data, alignment)
	if err != nil {
		return err
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     s.descriptorPools[frame],
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{s.DescriptorSetLayout},
	}
	descriptorSets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocInfo, &descriptorSets[0]); res != vk.Success {
		return vkError("failed to allocate descriptor set", res)
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: uniform.NativeHandle(),
		Offset: 0,
		Range:  vk.DeviceSize(builtinUniformsSize),
	}
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     s.mainTexture.sampler.Handle,
		ImageView:   s.mainTexture.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptorSets[0],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptorSets[0],
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		},
	}
	vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, s.PipelineLayout,
		0, 1, descriptorSets, 1, []uint32{uint32(offset)})
	return nil
}

// nextFrame resets the frame's descriptor pool and uniform cursor.
// Only call after the slot's fence has signaled.
func (s *VulkanShader) nextFrame(context *VulkanContext, frame int) {
	vk.ResetDescriptorPool(context.Device.LogicalDevice, s.descriptorPools[frame], 0)
	s.uniformBuffers[frame].NextFrame()
}

func (s *VulkanShader) destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	for i := 0; i < MaxFramesInFlight; i++ {
		if s.descriptorPools[i] != vk.NullDescriptorPool {
			vk.DestroyDescriptorPool(device, s.descriptorPools[i], context.Allocator)
			s.descriptorPools[i] = vk.NullDescriptorPool
		}
		if s.uniformBuffers[i] != nil {
			s.uniformBuffers[i].destroy()
			s.uniformBuffers[i] = nil
		}
	}
	if s.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, s.PipelineLayout, context.Allocator)
		s.PipelineLayout = vk.NullPipelineLayout
	}
	if s.DescriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, s.DescriptorSetLayout, context.Allocator)
		s.DescriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if s.vertModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, s.vertModule, context.Allocator)
		s.vertModule = vk.NullShaderModule
	}
	if s.fragModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, s.fragModule, context.Allocator)
		s.fragModule = vk.NullShaderModule
	}
}
