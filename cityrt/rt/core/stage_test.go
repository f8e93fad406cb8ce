package core

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCamera() *CameraUniform {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{3, 4, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return &CameraUniform{ViewProj: proj.Mul4(view)}
}

func TestNewStage_SelectsVariant(t *testing.T) {
	cam := testCamera()
	pal := DefaultPalette()
	for _, v := range Variants() {
		stage, err := NewStage(v, cam, &pal)
		require.NoError(t, err)
		assert.Equal(t, v, stage.Variant())
	}
}

func TestNewStage_Errors(t *testing.T) {
	_, err := NewStage(VariantPalette, testCamera(), nil)
	assert.ErrorIs(t, err, ErrPaletteRequired)

	_, err = NewStage(Variant(42), testCamera(), nil)
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}

func TestStaticStage_IsCameraTimesPoint(t *testing.T) {
	cam := testCamera()
	stage, err := NewStage(VariantStatic, cam, nil)
	require.NoError(t, err)

	points := []mgl32.Vec3{{0, 0, 0}, {1, -2, 3}, {-0.5, 0.5, 0}, {100, 200, -300}}
	color := mgl32.Vec4{1, 0, 0, 1}
	for _, p := range points {
		out := stage.Vertex(VertexInput{Position: p, Attribute: color}, InstanceAttrs{})
		assert.Equal(t, cam.ViewProj.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1}), out.Clip)
		assert.Equal(t, color, stage.Fragment(out))
	}
}

func TestStaticStage_ReadsCameraAtDrawTime(t *testing.T) {
	cam := &CameraUniform{ViewProj: mgl32.Ident4()}
	stage, _ := NewStage(VariantStatic, cam, nil)

	cam.ViewProj = mgl32.Translate3D(1, 2, 3)
	out := stage.Vertex(VertexInput{Position: mgl32.Vec3{0, 0, 0}}, InstanceAttrs{})
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 1}, out.Clip)
}

func TestMatrixStage_ComposesModelAndCamera(t *testing.T) {
	cam := testCamera()
	stage, _ := NewStage(VariantMatrix, cam, nil)

	tr := Transform{
		Position: mgl32.Vec3{4, 0, -2},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{1, 2, 0.5},
	}
	inst := NewMatrixInstance(tr)

	p := mgl32.Vec3{0.5, -0.5, 0.5}
	out := stage.Vertex(VertexInput{Position: p, Attribute: mgl32.Vec4{0, 1, 0, 1}}, inst.Attrs())

	want := cam.ViewProj.Mul4x1(inst.Model.Mul4x1(p.Vec4(1)))
	assert.Equal(t, want, out.Clip)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, stage.Fragment(out))
}

func TestMatrixInstance_SlotsRoundTrip(t *testing.T) {
	m := mgl32.Mat4{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	inst := MatrixInstance{Model: m}
	back := MatrixInstanceFromSlots(inst.Slots())
	assert.Equal(t, m, back.Model)
	assert.Equal(t, m, inst.Attrs().Matrix())

	// translation lives in the fourth slot
	tr := MatrixInstance{Model: mgl32.Translate3D(7, 8, 9)}
	assert.Equal(t, mgl32.Vec4{7, 8, 9, 1}, tr.Slots()[3])
}

func TestScaleStage_WorldPosition(t *testing.T) {
	tests := []struct {
		name  string
		p     mgl32.Vec3
		pos   mgl32.Vec3
		scale mgl32.Vec3
		want  mgl32.Vec3
	}{
		{"origin vertex", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{5, 0, 0}, mgl32.Vec3{2, 2, 2}, mgl32.Vec3{5, 0, 0}},
		{"unit x vertex", mgl32.Vec3{1, 0, 0}, mgl32.Vec3{5, 0, 0}, mgl32.Vec3{2, 2, 2}, mgl32.Vec3{7, 0, 0}},
		{"identity instance", mgl32.Vec3{0.3, -1.2, 4}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.3, -1.2, 4}},
		{"non uniform", mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{3, 0.5, -1}, mgl32.Vec3{3, 1.5, -1}},
		{"zero scale collapses", mgl32.Vec3{9, 9, 9}, mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WorldPosition(tc.p, tc.pos, tc.scale))
		})
	}
}

func TestScaleStage_ClipUsesWorldPosition(t *testing.T) {
	cam := testCamera()
	stage, _ := NewStage(VariantScale, cam, nil)

	inst := ScaleInstance{Position: mgl32.Vec3{5, 0, 0}, Scale: mgl32.Vec3{2, 2, 2}}
	out := stage.Vertex(VertexInput{Position: mgl32.Vec3{1, 0, 0}}, inst.Attrs())
	assert.Equal(t, cam.ViewProj.Mul4x1(mgl32.Vec4{7, 0, 0, 1}), out.Clip)
}

func TestPaletteStage_BandSelection(t *testing.T) {
	pal := DefaultPalette()
	cam := &CameraUniform{ViewProj: mgl32.Ident4()}
	stage, err := NewStage(VariantPalette, cam, &pal)
	require.NoError(t, err)

	up := LightDir // fully lit
	tests := []struct {
		miscX float32
		want  mgl32.Vec3
	}{
		{0.0, pal.Low},
		{0.49, pal.Low},
		{0.5, pal.High},
		{1.0, pal.High},
		{1.49, pal.High},
		{1.5, pal.Land},
		{2.0, pal.Land},
		{3.0, pal.Land},
		{100.0, pal.Land},
	}
	for _, tc := range tests {
		in := Varyings{Normal: up, Misc: mgl32.Vec3{tc.miscX, 0, 0}}
		got := stage.Fragment(in)
		assert.True(t, got.Vec3().ApproxEqualThreshold(tc.want, 1e-5), "misc.x=%v got %v want %v", tc.miscX, got, tc.want)
		assert.Equal(t, float32(1), got[3])
	}
}

func TestPaletteStage_NormalPassesThroughUnscaled(t *testing.T) {
	pal := DefaultPalette()
	stage, _ := NewStage(VariantPalette, &CameraUniform{ViewProj: mgl32.Ident4()}, &pal)

	inst := PaletteInstance{
		Position: mgl32.Vec3{1, 2, 3},
		Scale:    mgl32.Vec3{4, 1, 0.25},
		Category: CategoryHigh,
		AuxID:    7,
	}
	v := NormalVertex{Position: mgl32.Vec3{1, 1, 1}, Normal: mgl32.Vec3{0, 0, 1}}
	out := stage.Vertex(v.Input(), inst.Attrs())

	assert.Equal(t, mgl32.Vec3{0, 0, 1}, out.Normal)
	assert.Equal(t, mgl32.Vec3{1, 7, 0}, out.Misc)
	assert.Equal(t, mgl32.Vec4{5, 3, 3.25, 1}, out.Clip)
}

func TestLightTerm_Clamped(t *testing.T) {
	opposite := LightDir.Mul(-1)
	assert.Equal(t, float32(0.15), LightTerm(opposite))

	aligned := LightTerm(LightDir)
	assert.LessOrEqual(t, aligned, float32(1.0))
	assert.InDelta(t, 1.0, aligned, 1e-6)

	// unnormalised input is normalised first
	assert.InDelta(t, 1.0, LightTerm(LightDir.Mul(10)), 1e-6)

	// perpendicular normal is 0 before clamping
	perp := mgl32.Vec3{0.9, -0.4, 0}
	assert.Equal(t, float32(0.15), LightTerm(perp))

	// a zero normal stays at the floor instead of producing NaN
	got := LightTerm(mgl32.Vec3{})
	assert.False(t, math.IsNaN(float64(got)))
	assert.Equal(t, float32(0.15), got)
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants() {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	got, err := ParseVariant("  Palette ")
	require.NoError(t, err)
	assert.Equal(t, VariantPalette, got)

	_, err = ParseVariant("voxel")
	assert.ErrorIs(t, err, ErrUnknownVariant)
	assert.False(t, VariantStatic.Instanced())
	assert.True(t, VariantScale.Instanced())
}
