package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestMarshalVertices(t *testing.T) {
	cv := []core.ColorVertex{
		{Position: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec4{0.1, 0.2, 0.3, 1}},
		{Position: mgl32.Vec3{-1, 0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
	}
	b := MarshalVertices(cv)
	require.Len(t, b, 2*ColorVertexStride)
	assert.Equal(t, float32(3), floatAt(b, 2))
	assert.Equal(t, float32(0.1), floatAt(b, 3))
	assert.Equal(t, float32(-1), floatAt(b, 7))

	nv := []core.NormalVertex{{Position: mgl32.Vec3{1, 2, 3}, Normal: mgl32.Vec3{0, 1, 0}}}
	b = MarshalVertices(nv)
	require.Len(t, b, NormalVertexStride)
	assert.Equal(t, float32(1), floatAt(b, 4))
}

func TestMatrixInstance_SurvivesPacking(t *testing.T) {
	tr := core.Transform{
		Position: mgl32.Vec3{3, -1, 8},
		Rotation: mgl32.QuatRotate(1.1, mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 3, 4},
	}
	insts := []core.MatrixInstance{core.NewMatrixInstance(tr), {Model: mgl32.Ident4()}}

	b, err := MarshalInstances(core.VariantMatrix, insts)
	require.NoError(t, err)
	require.Len(t, b, 2*MatrixInstanceStride)

	// translation is the fourth column, the last vec4 of the record
	assert.Equal(t, []float32{3, -1, 8, 1}, []float32{floatAt(b, 12), floatAt(b, 13), floatAt(b, 14), floatAt(b, 15)})

	attrs, err := DecodeInstanceAttrs(core.VariantMatrix, b)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	for i := range insts {
		assert.Equal(t, insts[i].Model, attrs[i].Matrix())
	}
}

func TestScaleInstance_Packing(t *testing.T) {
	insts := []core.ScaleInstance{{Position: mgl32.Vec3{5, 0, 0}, Scale: mgl32.Vec3{2, 2, 2}}}
	b, err := MarshalInstances(core.VariantScale, insts)
	require.NoError(t, err)
	require.Len(t, b, ScaleInstanceStride)

	attrs, err := DecodeInstanceAttrs(core.VariantScale, b)
	require.NoError(t, err)
	assert.Equal(t, insts[0].Attrs(), attrs[0])
}

func TestPaletteInstance_PackingKeepsWZero(t *testing.T) {
	insts := []core.PaletteInstance{{
		Position: mgl32.Vec3{1, 2, 3},
		Scale:    mgl32.Vec3{4, 5, 6},
		Category: core.CategoryLand,
		AuxID:    17,
	}}
	b, err := MarshalInstances(core.VariantPalette, insts)
	require.NoError(t, err)
	require.Len(t, b, PaletteInstanceStride)
	for _, w := range []int{3, 7, 11} {
		assert.Equal(t, float32(0), floatAt(b, w))
	}
	assert.Equal(t, float32(2), floatAt(b, 8))
	assert.Equal(t, float32(17), floatAt(b, 9))

	attrs, err := DecodeInstanceAttrs(core.VariantPalette, b)
	require.NoError(t, err)
	assert.Equal(t, insts[0].Attrs(), attrs[0])
}

// The CPU stage evaluated on the uploaded bytes gives the documented results.
func TestUploadedBytesDriveTheStage(t *testing.T) {
	cam := &core.CameraUniform{ViewProj: mgl32.Ident4()}
	stage, err := core.NewStage(core.VariantScale, cam, nil)
	require.NoError(t, err)

	b, err := MarshalInstances(core.VariantScale, []core.ScaleInstance{{Position: mgl32.Vec3{5, 0, 0}, Scale: mgl32.Vec3{2, 2, 2}}})
	require.NoError(t, err)
	attrs, err := DecodeInstanceAttrs(core.VariantScale, b)
	require.NoError(t, err)

	origin := stage.Vertex(core.ColorVertex{Position: mgl32.Vec3{0, 0, 0}}.Input(), attrs[0])
	unitX := stage.Vertex(core.ColorVertex{Position: mgl32.Vec3{1, 0, 0}}.Input(), attrs[0])
	assert.Equal(t, mgl32.Vec4{5, 0, 0, 1}, origin.Clip)
	assert.Equal(t, mgl32.Vec4{7, 0, 0, 1}, unitX.Clip)
}

func TestInstanceMarshal_Errors(t *testing.T) {
	_, err := MarshalInstances(core.VariantStatic, []core.ScaleInstance{{}})
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	_, err = MarshalInstances(core.Variant(7), []core.ScaleInstance{{}})
	assert.ErrorIs(t, err, core.ErrUnknownVariant)

	_, err = DecodeInstanceAttrs(core.VariantScale, make([]byte, ScaleInstanceStride+4))
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	attrs, err := DecodeInstanceAttrs(core.VariantPalette, nil)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
