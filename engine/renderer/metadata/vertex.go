package metadata

/** @brief Well-known vertex attribute slots. */
const (
	AttribPosition = 0
	AttribTexcoord = 1
	AttribColor    = 2

	/** @brief Maximum number of vertex attributes in a format. */
	MaxVertexAttribs = 8
	/** @brief Maximum number of vertex buffer bindings in a format. */
	MaxVertexBindings = 8
)

/** @brief Data format of a single vertex attribute. */
type VertexAttribFormat int

const (
	VertexFormatFloat VertexAttribFormat = iota
	VertexFormatVec2
	VertexFormatVec3
	VertexFormatVec4
	VertexFormatUByte4Norm
)

// VertexAttrib describes one enabled attribute: where it reads from
// and how.
type VertexAttrib struct {
	Format      VertexAttribFormat
	BufferIndex uint8
	Offset      uint16
}

// VertexLayout is the per-binding stride. A stride of zero makes
// every vertex read the same value.
type VertexLayout struct {
	Stride uint16
}

// VertexAttributes is a complete vertex format. It is a fixed-size
// value type so it can key pipeline lookups by equality.
type VertexAttributes struct {
	// EnableBits has bit i set when attribute slot i is enabled.
	EnableBits uint32
	// InstanceBits has bit i set when binding i steps per instance.
	InstanceBits uint32
	Attribs      [MaxVertexAttribs]VertexAttrib
	Layouts      [MaxVertexBindings]VertexLayout
}

// Set enables an attribute slot sourced from the given binding.
func (va *VertexAttributes) Set(slot int, format VertexAttribFormat, bufferIndex uint8, offset uint16) {
	va.EnableBits |= 1 << uint(slot)
	va.Attribs[slot] = VertexAttrib{
		Format:      format,
		BufferIndex: bufferIndex,
		Offset:      offset,
	}
}

// SetLayout records the stride of a vertex buffer binding.
func (va *VertexAttributes) SetLayout(bufferIndex int, stride uint16) {
	va.Layouts[bufferIndex] = VertexLayout{Stride: stride}
}

// IsEnabled reports whether attribute slot i is part of the format.
func (va *VertexAttributes) IsEnabled(slot int) bool {
	return va.EnableBits&(1<<uint(slot)) != 0
}
