package math

import (
	m "math"
	"testing"
)

func TestMat4MulIdentity(t *testing.T) {
	rot := NewMat4EulerZ(0.7)
	got := rot.Mul(NewMat4Identity())
	for i := range got.Data {
		if kabs(got.Data[i]-rot.Data[i]) > 1e-6 {
			t.Fatalf("Data[%d] = %f, want %f", i, got.Data[i], rot.Data[i])
		}
	}
}

func TestOrthographicMapsCorners(t *testing.T) {
	// A 0..800 x 0..600 orthographic projection must map the corners
	// to clip space -1..1.
	p := NewMat4Orthographic(0, 800, 600, 0, -1, 1)

	checks := []struct {
		x, y         float32
		wantX, wantY float32
	}{
		{0, 0, -1, 1},
		{800, 600, 1, -1},
		{400, 300, 0, 0},
	}
	for _, c := range checks {
		gotX := p.Data[0]*c.x + p.Data[12]
		gotY := p.Data[5]*c.y + p.Data[13]
		if kabs(gotX-c.wantX) > 1e-5 || kabs(gotY-c.wantY) > 1e-5 {
			t.Errorf("project(%g,%g) = (%g,%g), want (%g,%g)", c.x, c.y, gotX, gotY, c.wantX, c.wantY)
		}
	}
}

func TestEulerZQuarterTurn(t *testing.T) {
	rot := NewMat4EulerZ(float32(m.Pi / 2))
	// Rotating (1, 0) by 90 degrees lands on (0, 1).
	x := rot.Data[0]*1 + rot.Data[4]*0
	y := rot.Data[1]*1 + rot.Data[5]*0
	if kabs(x-0) > 1e-6 || kabs(y-1) > 1e-6 {
		t.Fatalf("rotated point = (%g,%g), want (0,1)", x, y)
	}
}

func TestNormalMatrixOfRotationIsRotation(t *testing.T) {
	// Rotations are orthogonal, so the inverse transpose equals the
	// original 3x3 block.
	rot := NewMat4EulerZ(0.35)
	n := rot.NormalMatrix()
	want := [3]Vec4{
		{X: rot.Data[0], Y: rot.Data[1], Z: rot.Data[2]},
		{X: rot.Data[4], Y: rot.Data[5], Z: rot.Data[6]},
		{X: rot.Data[8], Y: rot.Data[9], Z: rot.Data[10]},
	}
	for i := range n {
		if !n[i].Compare(want[i], 1e-5) {
			t.Errorf("row %d = %+v, want %+v", i, n[i], want[i])
		}
	}
}

func TestNormalMatrixSingularFallsBackToIdentity(t *testing.T) {
	n := Mat4{}.NormalMatrix()
	if n[0].X != 1 || n[1].Y != 1 || n[2].Z != 1 {
		t.Fatalf("singular normal matrix = %+v, want identity rows", n)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("Clamp(1.5, 0, 1) = %g", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Errorf("Clamp(-3, 0, 10) = %d", got)
	}
	if got := Clamp(uint32(5), uint32(1), uint32(9)); got != 5 {
		t.Errorf("Clamp(5, 1, 9) = %d", got)
	}
}

func TestSaturate(t *testing.T) {
	cases := []struct{ in, want float32 }{
		{-0.5, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{2.5, 1},
	}
	for _, tc := range cases {
		if got := Saturate(tc.in); got != tc.want {
			t.Errorf("Saturate(%g) = %g, want %g", tc.in, got, tc.want)
		}
	}
}
