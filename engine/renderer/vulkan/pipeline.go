package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanPipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

// vertexInputState is the synthesized Vulkan vertex input
// configuration for a vertex format.
type vertexInputState struct {
	Bindings   []vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription
	// UsesConstantColor is true when the format carries no color
	// attribute and a constant-color binding was appended.
	UsesConstantColor bool
	// ConstantColorBinding is that appended binding's index.
	ConstantColorBinding uint32
}

// buildVertexInputState translates a vertex format. Formats without
// a color attribute get an extra zero-stride binding one past the
// highest used binding, so every vertex reads the same color value
// from a 16-byte buffer.
func buildVertexInputState(attrs metadata.VertexAttributes) vertexInputState {
	var state vertexInputState

	usedBindings := map[uint8]bool{}
	highestBinding := uint8(0)

	for slot := 0; slot < metadata.MaxVertexAttribs; slot++ {
		if !attrs.IsEnabled(slot) {
			continue
		}
		attrib := attrs.Attribs[slot]

		if !usedBindings[attrib.BufferIndex] {
			usedBindings[attrib.BufferIndex] = true
			inputRate := vk.VertexInputRateVertex
			if attrs.InstanceBits&(1<<uint(attrib.BufferIndex)) != 0 {
				inputRate = vk.VertexInputRateInstance
			}
			state.Bindings = append(state.Bindings, vk.VertexInputBindingDescription{
				Binding:   uint32(attrib.BufferIndex),
				Stride:    uint32(attrs.Layouts[attrib.BufferIndex].Stride),
				InputRate: inputRate,
			})
		}
		if attrib.BufferIndex > highestBinding {
			highestBinding = attrib.BufferIndex
		}

		state.Attributes = append(state.Attributes, vk.VertexInputAttributeDescription{
			Location: uint32(slot),
			Binding:  uint32(attrib.BufferIndex),
			Format:   vertexFormatToVK(attrib.Format),
			Offset:   uint32(attrib.Offset),
		})
	}

	if !attrs.IsEnabled(metadata.AttribColor) {
		state.UsesConstantColor = true
		state.ConstantColorBinding = uint32(highestBinding) + 1

		state.Bindings = append(state.Bindings, vk.VertexInputBindingDescription{
			Binding:   state.ConstantColorBinding,
			Stride:    0,
			InputRate: vk.VertexInputRateVertex,
		})
		state.Attributes = append(state.Attributes, vk.VertexInputAttributeDescription{
			Location: metadata.AttribColor,
			Binding:  state.ConstantColorBinding,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   0,
		})
	}

	return state
}

// buildPipeline creates a graphics pipeline for a pipeline key. The
// key carries every dynamic input, so structurally equal draw
// configurations share the cached result.
func (vr *VulkanRenderer) buildPipeline(key PipelineKey) (*VulkanPipeline, error) {
	input := buildVertexInputState(key.Attributes)

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(input.Bindings)),
		PVertexBindingDescriptions:      input.Bindings,
		VertexAttributeDescriptionCount: uint32(len(input.Attributes)),
		PVertexAttributeDescriptions:    input.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topologyToVK(key.Topology),
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(key.ViewportWidth),
		Height:   float32(key.ViewportHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}

	scissor := vk.Rect2D{
		Extent: vk.Extent2D{Width: key.ViewportWidth, Height: key.ViewportHeight},
	}
	if key.Scissor.Enable {
		scissor = vk.Rect2D{
			Offset: vk.Offset2D{X: key.Scissor.Rect.X, Y: key.Scissor.Rect.Y},
			Extent: vk.Extent2D{Width: key.Scissor.Rect.W, Height: key.Scissor.Rect.H},
		}
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	polygonMode := vk.PolygonModeFill
	if key.Wireframe {
		polygonMode = vk.PolygonModeLine
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: polygonMode,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(cullModeToVK(key.CullMode)),
		FrontFace:   windingToVK(key.Winding),
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: colorMaskToVK(key.ColorMask),
	}
	if key.Blend.Enable {
		colorBlendAttachment.BlendEnable = vk.True
		colorBlendAttachment.SrcColorBlendFactor = blendFactorToVK(key.Blend.SrcFactorRGB)
		colorBlendAttachment.DstColorBlendFactor = blendFactorToVK(key.Blend.DstFactorRGB)
		colorBlendAttachment.ColorBlendOp = blendOpToVK(key.Blend.OpRGB)
		colorBlendAttachment.SrcAlphaBlendFactor = blendFactorToVK(key.Blend.SrcFactorA)
		colorBlendAttachment.DstAlphaBlendFactor = blendFactorToVK(key.Blend.DstFactorA)
		colorBlendAttachment.AlphaBlendOp = blendOpToVK(key.Blend.OpA)
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(key.Shader.Stages)),
		PStages:             key.Shader.Stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		Layout:              key.Shader.PipelineLayout,
		RenderPass:          key.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handles := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(vr.context.Device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo}, vr.context.Allocator, handles); res != vk.Success {
		return nil, vkError("failed to create graphics pipeline", res)
	}
	return &VulkanPipeline{Handle: handles[0], Layout: key.Shader.PipelineLayout}, nil
}

func (vr *VulkanRenderer) destroyPipeline(p *VulkanPipeline) {
	if p.Handle != vk.NullPipeline {
		vk.DestroyPipeline(vr.context.Device.LogicalDevice, p.Handle, vr.context.Allocator)
		p.Handle = vk.NullPipeline
	}
}
