package metadata

import (
	"github.com/spaghettifunk/lumen/engine/math"
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
)

/** @brief Vertex winding order that defines a front face. */
type Winding int

const (
	WindingCCW Winding = 0x0
	WindingCW  Winding = 0x1
)

/** @brief Primitive assembly mode for a draw. */
type PrimitiveTopology int

const (
	TopologyTriangles PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLines
	TopologyLineStrip
	TopologyPoints
)

/** @brief Index element width for indexed draws. */
type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

/** @brief Blend multiplier applied to a source or destination term. */
type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

/** @brief Operation combining the blended source and destination terms. */
type BlendOp int

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// BlendState is a full blend equation. The zero value disables
// blending.
type BlendState struct {
	Enable       bool
	SrcFactorRGB BlendFactor
	DstFactorRGB BlendFactor
	OpRGB        BlendOp
	SrcFactorA   BlendFactor
	DstFactorA   BlendFactor
	OpA          BlendOp
}

// BlendAlpha returns standard alpha blending.
func BlendAlpha() BlendState {
	return BlendState{
		Enable:       true,
		SrcFactorRGB: BlendFactorSrcAlpha,
		DstFactorRGB: BlendFactorOneMinusSrcAlpha,
		OpRGB:        BlendOpAdd,
		SrcFactorA:   BlendFactorOne,
		DstFactorA:   BlendFactorOneMinusSrcAlpha,
		OpA:          BlendOpAdd,
	}
}

// ColorMask selects which channels a draw writes.
type ColorMask struct {
	R, G, B, A bool
}

func ColorMaskAll() ColorMask {
	return ColorMask{R: true, G: true, B: true, A: true}
}

// Color is a normalized RGBA color.
type Color struct {
	R, G, B, A float32
}

// Clamped returns the color with every component limited to [0, 1].
func (c Color) Clamped() Color {
	return Color{
		R: math.Saturate(c.R),
		G: math.Saturate(c.G),
		B: math.Saturate(c.B),
		A: math.Saturate(c.A),
	}
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y int32
	W, H uint32
}

// ScissorState is the scissor test configuration. When disabled the
// scissor covers the whole viewport.
type ScissorState struct {
	Enable bool
	Rect   Rect
}

// RendererInfo identifies the backing graphics API and device.
type RendererInfo struct {
	Name    string
	Version string
	Vendor  string
	Device  string
}

// APIStats are per-frame counters, reset when a frame is presented.
type APIStats struct {
	ShaderSwitches   int
	DrawCalls        int
	DrawCallsBatched int
}

// Capabilities are the device limits callers may care about when
// sizing textures or points.
type Capabilities struct {
	MaxTextureSize uint32
	PointSizeMin   float32
	PointSizeMax   float32
	MaxAnisotropy  float32
}
