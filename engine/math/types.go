package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix in column-major order, the layout uniform
// buffers expect.
type Mat4 struct {
	Data [16]float32
}

// Vertex2D is the layout of a batched 2D vertex: position plus
// texture coordinate.
type Vertex2D struct {
	Position Vec2
	Texcoord Vec2
}
