package vulkan

// MaxFramesInFlight is the number of frames the CPU may record
// ahead of the GPU.
const MaxFramesInFlight = 2

const (
	// Per-frame stream buffer sizes. The index stream buffer covers
	// every index a single 16-bit indexed draw can address.
	vertexBufferSize      = 1 << 20   // 1 MiB
	smallVertexBufferSize = 256 << 10 // 256 KiB
	indexBufferSize       = 65536 * 2

	// maxQuadsPerDraw is how many quads fit in one 16-bit indexed
	// draw: 65536 addressable indices, 4 vertices per quad.
	maxQuadsPerDraw = 65536 / 4

	// constantColorBufferSize holds a single RGBA32F vertex.
	constantColorBufferSize = 4 * 4

	// defaultUniformAlignment is used for dynamic uniform offsets
	// until the device reports its own minimum.
	defaultUniformAlignment = 256
)
