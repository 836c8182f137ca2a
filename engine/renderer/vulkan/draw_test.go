package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestQuadSubBatchesSingleDraw(t *testing.T) {
	batches := quadSubBatches(0, 100)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].QuadCount != 100 || batches[0].BaseVertex != 0 {
		t.Errorf("unexpected batch %+v", batches[0])
	}
}

func TestQuadSubBatchesStartOffset(t *testing.T) {
	batches := quadSubBatches(10, 5)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].BaseVertex != 40 {
		t.Errorf("base vertex = %d, want 40", batches[0].BaseVertex)
	}
}

func TestQuadSubBatchesSplitsLargeRuns(t *testing.T) {
	count := maxQuadsPerDraw*2 + 7
	batches := quadSubBatches(0, count)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	total := 0
	expectedBase := int32(0)
	for i, b := range batches {
		if b.BaseVertex != expectedBase {
			t.Errorf("batch %d base vertex = %d, want %d", i, b.BaseVertex, expectedBase)
		}
		if b.QuadCount > maxQuadsPerDraw {
			t.Errorf("batch %d has %d quads, exceeds %d", i, b.QuadCount, maxQuadsPerDraw)
		}
		total += int(b.QuadCount)
		expectedBase += int32(b.QuadCount) * 4
	}
	if total != count {
		t.Errorf("batches cover %d quads, want %d", total, count)
	}
}

func TestBuildVertexInputStateSynthesizesConstantColor(t *testing.T) {
	attrs := quadVertexAttributes()
	state := buildVertexInputState(attrs)

	if !state.UsesConstantColor {
		t.Fatal("format without color attribute should use the constant color binding")
	}
	if state.ConstantColorBinding != 1 {
		t.Errorf("constant color binding = %d, want 1", state.ConstantColorBinding)
	}
	if len(state.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(state.Bindings))
	}

	synth := state.Bindings[len(state.Bindings)-1]
	if synth.Stride != 0 {
		t.Errorf("constant color binding stride = %d, want 0", synth.Stride)
	}

	var colorAttrib *vk.VertexInputAttributeDescription
	for i := range state.Attributes {
		if state.Attributes[i].Location == metadata.AttribColor {
			colorAttrib = &state.Attributes[i]
		}
	}
	if colorAttrib == nil {
		t.Fatal("no color attribute was synthesized")
	}
	if colorAttrib.Format != vk.FormatR32g32b32a32Sfloat {
		t.Errorf("color attribute format = %d, want %d", colorAttrib.Format, vk.FormatR32g32b32a32Sfloat)
	}
	if colorAttrib.Binding != state.ConstantColorBinding {
		t.Errorf("color attribute binding = %d, want %d", colorAttrib.Binding, state.ConstantColorBinding)
	}
}

func TestBuildVertexInputStateWithColorAttribute(t *testing.T) {
	var attrs metadata.VertexAttributes
	attrs.Set(metadata.AttribPosition, metadata.VertexFormatVec2, 0, 0)
	attrs.Set(metadata.AttribColor, metadata.VertexFormatUByte4Norm, 0, 8)
	attrs.SetLayout(0, 12)

	state := buildVertexInputState(attrs)
	if state.UsesConstantColor {
		t.Error("format with a color attribute should not synthesize one")
	}
	if len(state.Bindings) != 1 {
		t.Errorf("expected 1 binding, got %d", len(state.Bindings))
	}
	if len(state.Attributes) != 2 {
		t.Errorf("expected 2 attributes, got %d", len(state.Attributes))
	}
}

func TestBuildVertexInputStateInstanceRate(t *testing.T) {
	var attrs metadata.VertexAttributes
	attrs.Set(metadata.AttribPosition, metadata.VertexFormatVec2, 0, 0)
	attrs.Set(3, metadata.VertexFormatVec4, 1, 0)
	attrs.SetLayout(0, 8)
	attrs.SetLayout(1, 16)
	attrs.InstanceBits = 1 << 1

	state := buildVertexInputState(attrs)
	for _, b := range state.Bindings {
		switch b.Binding {
		case 0:
			if b.InputRate != vk.VertexInputRateVertex {
				t.Errorf("binding 0 input rate = %d, want per-vertex", b.InputRate)
			}
		case 1:
			if b.InputRate != vk.VertexInputRateInstance {
				t.Errorf("binding 1 input rate = %d, want per-instance", b.InputRate)
			}
		}
	}
}

func TestBuildBuiltinUniformsPacking(t *testing.T) {
	transform := math.NewMat4Translation2D(3, 4)
	projection := math.NewMat4Orthographic(0, 800, 600, 0, -1, 1)
	identity := math.NewMat4Identity()

	u := buildBuiltinUniforms(transform, projection, identity,
		800, 600, 2.0, 8.0,
		metadata.Color{R: 0.5, G: 0.25, B: 1, A: 1}, false)

	if u.NormalMatrix[0].W != 2.0 {
		t.Errorf("dpi scale = %v, want 2.0", u.NormalMatrix[0].W)
	}
	if u.NormalMatrix[1].W != 8.0 {
		t.Errorf("point size = %v, want 8.0", u.NormalMatrix[1].W)
	}

	if u.ScreenSize.X != 800 || u.ScreenSize.Y != 600 {
		t.Errorf("screen size = %v x %v, want 800 x 600", u.ScreenSize.X, u.ScreenSize.Y)
	}
	if u.ScreenSize.Z != 1.0/800 || u.ScreenSize.W != 1.0/600 {
		t.Errorf("inverse screen size = %v, %v", u.ScreenSize.Z, u.ScreenSize.W)
	}

	if u.Projection != identity.Mul(projection) {
		t.Error("identity display rotation should leave the projection unchanged")
	}
	if u.Transform != transform {
		t.Error("transform should pass through unchanged")
	}
	if (u.Color != math.Vec4{X: 0.5, Y: 0.25, Z: 1, W: 1}) {
		t.Errorf("color = %+v", u.Color)
	}
}

func TestBuildBuiltinUniformsAppliesDisplayRotation(t *testing.T) {
	projection := math.NewMat4Orthographic(0, 800, 600, 0, -1, 1)
	rotation := math.NewMat4EulerZ(1.5)

	u := buildBuiltinUniforms(math.NewMat4Identity(), projection, rotation,
		800, 600, 1, 1, metadata.Color{R: 1, G: 1, B: 1, A: 1}, false)

	if u.Projection != rotation.Mul(projection) {
		t.Error("projection should be pre-multiplied by the display rotation")
	}
}

func TestGammaCorrectColor(t *testing.T) {
	c := metadata.Color{R: 0.5, G: 0, B: 1, A: 0.75}

	plain := gammaCorrectColor(c, false)
	if (plain != math.Vec4{X: 0.5, Y: 0, Z: 1, W: 0.75}) {
		t.Errorf("without gamma correction, color = %+v", plain)
	}

	linear := gammaCorrectColor(c, true)
	if linear.X >= 0.5 {
		t.Errorf("mid gray should darken when linearized, got %v", linear.X)
	}
	if linear.Y != 0 {
		t.Errorf("black channel should stay 0, got %v", linear.Y)
	}
	if linear.Z != 1 {
		t.Errorf("full channel should stay 1, got %v", linear.Z)
	}
	if linear.W != 0.75 {
		t.Errorf("alpha is not gamma corrected, got %v", linear.W)
	}
}

func TestGammaCorrectColorClamps(t *testing.T) {
	out := gammaCorrectColor(metadata.Color{R: 2, G: -1, B: 0.5, A: 3}, false)
	if out.X != 1 || out.Y != 0 || out.W != 1 {
		t.Errorf("out-of-range channels should clamp, got %+v", out)
	}
}

func TestQuadVertexAttributes(t *testing.T) {
	attrs := quadVertexAttributes()
	if !attrs.IsEnabled(metadata.AttribPosition) || !attrs.IsEnabled(metadata.AttribTexcoord) {
		t.Fatal("quad format must enable position and texcoord")
	}
	if attrs.IsEnabled(metadata.AttribColor) {
		t.Error("quad format should leave color to the constant color binding")
	}
	if attrs.Layouts[0].Stride != uint16(vertex2DSize) {
		t.Errorf("stride = %d, want %d", attrs.Layouts[0].Stride, vertex2DSize)
	}
}
