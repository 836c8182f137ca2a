package math

import (
	m "math"
)

func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func NewVec4Zero() Vec4 {
	return Vec4{}
}

func NewVec4One() Vec4 {
	return Vec4{X: 1.0, Y: 1.0, Z: 1.0, W: 1.0}
}

func (v Vec4) Compare(other Vec4, tolerance float32) bool {
	if kabs(v.X-other.X) > tolerance {
		return false
	}
	if kabs(v.Y-other.Y) > tolerance {
		return false
	}
	if kabs(v.Z-other.Z) > tolerance {
		return false
	}
	return kabs(v.W-other.W) <= tolerance
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 *
 * @return A new identity matrix
 */
func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Returns the result of multiplying the two matrices.
 *
 * @param other The matrix to multiply by.
 * @return The result of the matrix multiplication.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out_matrix := NewMat4Identity()

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out_matrix.Data[row*4+col] = sum
		}
	}

	return out_matrix
}

/**
 * @brief Creates and returns an orthographic projection matrix. Typically used to
 * render flat or 2D scenes.
 *
 * @param left The left side of the view frustum.
 * @param right The right side of the view frustum.
 * @param bottom The bottom side of the view frustum.
 * @param top The top side of the view frustum.
 * @param near_clip The near clipping plane distance.
 * @param far_clip The far clipping plane distance.
 * @return A new orthographic projection matrix.
 */
func NewMat4Orthographic(left, right, bottom, top, near_clip, far_clip float32) Mat4 {
	out_matrix := NewMat4Identity()

	lr := 1.0 / (left - right)
	bt := 1.0 / (bottom - top)
	nf := 1.0 / (near_clip - far_clip)

	out_matrix.Data[0] = -2.0 * lr
	out_matrix.Data[5] = -2.0 * bt
	out_matrix.Data[10] = 2.0 * nf

	out_matrix.Data[12] = (left + right) * lr
	out_matrix.Data[13] = (top + bottom) * bt
	out_matrix.Data[14] = (far_clip + near_clip) * nf
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided z angle.
 *
 * @param angle_radians The z angle in radians.
 * @return A rotation matrix.
 */
func NewMat4EulerZ(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()

	c := kcos(angle_radians)
	s := ksin(angle_radians)

	out_matrix.Data[0] = c
	out_matrix.Data[1] = s
	out_matrix.Data[4] = -s
	out_matrix.Data[5] = c
	return out_matrix
}

/**
 * @brief Creates a translation matrix for the provided 2D position.
 */
func NewMat4Translation2D(x, y float32) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[12] = x
	out_matrix.Data[13] = y
	return out_matrix
}

// NormalMatrix returns the inverse transpose of the upper-left 3x3
// of the matrix as three row vectors. The W components are left at
// zero for the caller to use.
func (mt Mat4) NormalMatrix() [3]Vec4 {
	a00, a01, a02 := mt.Data[0], mt.Data[1], mt.Data[2]
	a10, a11, a12 := mt.Data[4], mt.Data[5], mt.Data[6]
	a20, a21, a22 := mt.Data[8], mt.Data[9], mt.Data[10]

	b00 := a11*a22 - a12*a21
	b01 := a12*a20 - a10*a22
	b02 := a10*a21 - a11*a20

	det := a00*b00 + a01*b01 + a02*b02
	if det == 0 {
		identity := [3]Vec4{}
		identity[0].X = 1.0
		identity[1].Y = 1.0
		identity[2].Z = 1.0
		return identity
	}
	invDet := 1.0 / det

	// Rows of the inverse transpose are the cofactor columns scaled
	// by the inverse determinant.
	var out [3]Vec4
	out[0] = Vec4{X: b00 * invDet, Y: b01 * invDet, Z: b02 * invDet}
	out[1] = Vec4{
		X: (a02*a21 - a01*a22) * invDet,
		Y: (a00*a22 - a02*a20) * invDet,
		Z: (a01*a20 - a00*a21) * invDet,
	}
	out[2] = Vec4{
		X: (a01*a12 - a02*a11) * invDet,
		Y: (a02*a10 - a00*a12) * invDet,
		Z: (a00*a11 - a01*a10) * invDet,
	}
	return out
}
