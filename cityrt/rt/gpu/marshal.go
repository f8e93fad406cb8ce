package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Record strides in bytes. They equal the ArrayStride VertexLayoutOf derives.
const (
	ColorVertexStride     = 28
	NormalVertexStride    = 24
	MatrixInstanceStride  = 64
	ScaleInstanceStride   = 24
	PaletteInstanceStride = 48
)

// VertexRecord is the set of per-vertex records a pipeline can consume.
type VertexRecord interface {
	core.ColorVertex | core.NormalVertex
}

func appendFloats(buf []byte, fs ...float32) []byte {
	for _, f := range fs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func appendVec3(buf []byte, v mgl32.Vec3) []byte { return appendFloats(buf, v[0], v[1], v[2]) }
func appendVec4(buf []byte, v mgl32.Vec4) []byte { return appendFloats(buf, v[0], v[1], v[2], v[3]) }

func readVec(data []byte, n int) mgl32.Vec4 {
	var v mgl32.Vec4
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}

// MarshalVertices packs vertex records little-endian at their layout stride.
func MarshalVertices[V VertexRecord](vertices []V) []byte {
	buf := make([]byte, 0, len(vertices)*ColorVertexStride)
	for _, v := range vertices {
		switch v := any(v).(type) {
		case core.ColorVertex:
			buf = appendVec3(buf, v.Position)
			buf = appendVec4(buf, v.Color)
		case core.NormalVertex:
			buf = appendVec3(buf, v.Position)
			buf = appendVec3(buf, v.Normal)
		}
	}
	return buf
}

// InstanceStride returns the per-instance byte stride of a variant.
func InstanceStride(v core.Variant) (int, error) {
	switch v {
	case core.VariantMatrix:
		return MatrixInstanceStride, nil
	case core.VariantScale:
		return ScaleInstanceStride, nil
	case core.VariantPalette:
		return PaletteInstanceStride, nil
	case core.VariantStatic:
		return 0, fmt.Errorf("%w: %s has no instance stream", ErrLayoutMismatch, v)
	}
	return 0, fmt.Errorf("%w: %d", core.ErrUnknownVariant, int(v))
}

// MarshalInstances lowers instance records to attribute slots and packs them
// the way the variant's instance layout reads them.
func MarshalInstances[R core.InstanceRecord](v core.Variant, records []R) ([]byte, error) {
	stride, err := InstanceStride(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(records)*stride)
	for _, r := range records {
		a := r.Attrs()
		switch v {
		case core.VariantMatrix:
			for _, col := range a {
				buf = appendVec4(buf, col)
			}
		case core.VariantScale:
			buf = appendVec3(buf, a.Position())
			buf = appendVec3(buf, a.Scale())
		case core.VariantPalette:
			buf = appendVec3(buf, a.Position())
			buf = appendFloats(buf, 0)
			buf = appendVec3(buf, a.Scale())
			buf = appendFloats(buf, 0)
			buf = appendVec3(buf, a.Misc())
			buf = appendFloats(buf, 0)
		}
	}
	return buf, nil
}

// DecodeInstanceAttrs reads packed instance bytes back into attribute slots,
// exactly as the vertex stage would fetch them.
func DecodeInstanceAttrs(v core.Variant, data []byte) ([]core.InstanceAttrs, error) {
	stride, err := InstanceStride(v)
	if err != nil {
		return nil, err
	}
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of stride %d", ErrLayoutMismatch, len(data), stride)
	}

	out := make([]core.InstanceAttrs, 0, len(data)/stride)
	for off := 0; off < len(data); off += stride {
		rec := data[off : off+stride]
		var a core.InstanceAttrs
		switch v {
		case core.VariantMatrix:
			for i := range a {
				a[i] = readVec(rec[i*16:], 4)
			}
		case core.VariantScale:
			a[0] = readVec(rec[0:], 3)
			a[1] = readVec(rec[12:], 3)
		case core.VariantPalette:
			a[0] = readVec(rec[0:], 3)
			a[1] = readVec(rec[16:], 3)
			a[2] = readVec(rec[32:], 3)
		}
		out = append(out, a)
	}
	return out, nil
}
