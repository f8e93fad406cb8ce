package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/instancer/cityrt/rt/core"
)

const (
	// UniformBlockSize is the allocation size of every uniform buffer.
	UniformBlockSize = 256

	CameraBindingSize  = 64
	PaletteBindingSize = 48
)

// Binding describes one uniform bind point of a pipeline.
type Binding struct {
	Label      string
	Group      uint32
	Binding    uint32
	Visibility wgpu.ShaderStage
	MinSize    uint64
}

var (
	CameraBinding = Binding{
		Label:      "Camera",
		Group:      0,
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex,
		MinSize:    CameraBindingSize,
	}
	PaletteBinding = Binding{
		Label:      "Palette",
		Group:      1,
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		MinSize:    PaletteBindingSize,
	}
)

// BindingsFor lists the bind points a variant's shader declares, ordered by group.
func BindingsFor(v core.Variant) ([]Binding, error) {
	switch v {
	case core.VariantStatic, core.VariantMatrix, core.VariantScale:
		return []Binding{CameraBinding}, nil
	case core.VariantPalette:
		return []Binding{CameraBinding, PaletteBinding}, nil
	}
	return nil, fmt.Errorf("%w: %d", core.ErrUnknownVariant, int(v))
}

// LayoutEntry converts a binding to its bind group layout entry.
func (b Binding) LayoutEntry() wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: b.Visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			MinBindingSize:   b.MinSize,
			HasDynamicOffset: false,
		},
	}
}

// CameraBytes packs the view-projection matrix column-major into a uniform block.
func CameraBytes(u core.CameraUniform) []byte {
	buf := make([]byte, 0, UniformBlockSize)
	buf = appendFloats(buf, u.ViewProj[:]...)
	return buf[:UniformBlockSize]
}

// PaletteBytes packs the three palette colours at a 16-byte stride, the
// alignment WGSL gives vec3<f32> struct members in the uniform address space.
func PaletteBytes(p core.Palette) []byte {
	buf := make([]byte, 0, UniformBlockSize)
	for _, c := range []core.Category{core.CategoryLow, core.CategoryHigh, core.CategoryLand} {
		buf = appendVec3(buf, p.Color(c))
		buf = appendFloats(buf, 0)
	}
	return buf[:UniformBlockSize]
}
