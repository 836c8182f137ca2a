package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func blendFactorToVK(f metadata.BlendFactor) vk.BlendFactor {
	switch f {
	case metadata.BlendFactorZero:
		return vk.BlendFactorZero
	case metadata.BlendFactorOne:
		return vk.BlendFactorOne
	case metadata.BlendFactorSrcColor:
		return vk.BlendFactorSrcColor
	case metadata.BlendFactorOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case metadata.BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case metadata.BlendFactorDstColor:
		return vk.BlendFactorDstColor
	case metadata.BlendFactorOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case metadata.BlendFactorDstAlpha:
		return vk.BlendFactorDstAlpha
	case metadata.BlendFactorOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	default:
		return vk.BlendFactorZero
	}
}

func blendOpToVK(op metadata.BlendOp) vk.BlendOp {
	switch op {
	case metadata.BlendOpAdd:
		return vk.BlendOpAdd
	case metadata.BlendOpSubtract:
		return vk.BlendOpSubtract
	case metadata.BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	case metadata.BlendOpMin:
		return vk.BlendOpMin
	case metadata.BlendOpMax:
		return vk.BlendOpMax
	default:
		return vk.BlendOpAdd
	}
}

func cullModeToVK(mode metadata.FaceCullMode) vk.CullModeFlagBits {
	switch mode {
	case metadata.FaceCullModeFront:
		return vk.CullModeFrontBit
	case metadata.FaceCullModeBack:
		return vk.CullModeBackBit
	default:
		return vk.CullModeNone
	}
}

func windingToVK(w metadata.Winding) vk.FrontFace {
	if w == metadata.WindingCW {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func topologyToVK(t metadata.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case metadata.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.TopologyTriangleFan:
		return vk.PrimitiveTopologyTriangleFan
	case metadata.TopologyLines:
		return vk.PrimitiveTopologyLineList
	case metadata.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case metadata.TopologyPoints:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func indexTypeToVK(t metadata.IndexType) vk.IndexType {
	if t == metadata.IndexUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func colorMaskToVK(mask metadata.ColorMask) vk.ColorComponentFlags {
	var flags vk.ColorComponentFlagBits
	if mask.R {
		flags |= vk.ColorComponentRBit
	}
	if mask.G {
		flags |= vk.ColorComponentGBit
	}
	if mask.B {
		flags |= vk.ColorComponentBBit
	}
	if mask.A {
		flags |= vk.ColorComponentABit
	}
	return vk.ColorComponentFlags(flags)
}

func vertexFormatToVK(f metadata.VertexAttribFormat) vk.Format {
	switch f {
	case metadata.VertexFormatFloat:
		return vk.FormatR32Sfloat
	case metadata.VertexFormatVec2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatVec3:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexFormatVec4:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.VertexFormatUByte4Norm:
		return vk.FormatR8g8b8a8Unorm
	default:
		return vk.FormatR32g32b32a32Sfloat
	}
}
