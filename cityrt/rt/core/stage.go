package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Variant names a shader program and the instance record it consumes.
type Variant int

const (
	VariantStatic Variant = iota
	VariantMatrix
	VariantScale
	VariantPalette
)

var (
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrPaletteRequired = errors.New("palette variant needs a palette")
)

var variantNames = map[Variant]string{
	VariantStatic:  "static",
	VariantMatrix:  "matrix",
	VariantScale:   "scale",
	VariantPalette: "palette",
}

// Variants lists every variant in increasing order of sophistication.
func Variants() []Variant {
	return []Variant{VariantStatic, VariantMatrix, VariantScale, VariantPalette}
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Instanced reports whether the variant reads a per-instance buffer.
func (v Variant) Instanced() bool {
	return v != VariantStatic
}

func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range variantNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// LightDir is the fixed, unnormalised light direction of the palette shader.
var LightDir = mgl32.Vec3{0.4, 0.9, 0.1}

const (
	minLight float32 = 0.15
	maxLight float32 = 1.0
)

// Varyings is the vertex stage output handed to the fragment stage.
type Varyings struct {
	Clip   mgl32.Vec4
	Color  mgl32.Vec4
	Normal mgl32.Vec3
	Misc   mgl32.Vec3
}

// Stage is the CPU rendition of one shader program.
// Stages never fail: bad input gives a bad picture, not an error.
type Stage interface {
	Variant() Variant
	Vertex(v VertexInput, inst InstanceAttrs) Varyings
	Fragment(in Varyings) mgl32.Vec4
}

// NewStage picks the transform strategy once, when the pipeline is built.
// The stage keeps the uniform pointers and reads them on every call.
func NewStage(variant Variant, camera *CameraUniform, palette *Palette) (Stage, error) {
	if camera == nil {
		camera = &CameraUniform{ViewProj: mgl32.Ident4()}
	}
	switch variant {
	case VariantStatic:
		return staticStage{camera: camera}, nil
	case VariantMatrix:
		return matrixStage{camera: camera}, nil
	case VariantScale:
		return scaleStage{camera: camera}, nil
	case VariantPalette:
		if palette == nil {
			return nil, ErrPaletteRequired
		}
		return paletteStage{camera: camera, palette: palette}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(variant))
	}
}

// WorldPosition is the axis-aligned instance rule ip + is ⊙ p.
func WorldPosition(p, ip, is mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		ip[0] + is[0]*p[0],
		ip[1] + is[1]*p[1],
		ip[2] + is[2]*p[2],
	}
}

// LightTerm is the clamped Lambert factor for a normal against LightDir.
func LightTerm(normal mgl32.Vec3) float32 {
	n := normalizeOrZero(normal)
	l := LightDir.Normalize()
	return mgl32.Clamp(n.Dot(l), minLight, maxLight)
}

func normalizeOrZero(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}

type staticStage struct {
	camera *CameraUniform
}

func (s staticStage) Variant() Variant { return VariantStatic }

func (s staticStage) Vertex(v VertexInput, _ InstanceAttrs) Varyings {
	return Varyings{Clip: s.camera.Clip(v.Position), Color: v.Attribute}
}

func (s staticStage) Fragment(in Varyings) mgl32.Vec4 { return in.Color }

type matrixStage struct {
	camera *CameraUniform
}

func (s matrixStage) Variant() Variant { return VariantMatrix }

func (s matrixStage) Vertex(v VertexInput, inst InstanceAttrs) Varyings {
	world := inst.Matrix().Mul4x1(v.Position.Vec4(1))
	return Varyings{Clip: s.camera.ViewProj.Mul4x1(world), Color: v.Attribute}
}

func (s matrixStage) Fragment(in Varyings) mgl32.Vec4 { return in.Color }

type scaleStage struct {
	camera *CameraUniform
}

func (s scaleStage) Variant() Variant { return VariantScale }

func (s scaleStage) Vertex(v VertexInput, inst InstanceAttrs) Varyings {
	world := WorldPosition(v.Position, inst.Position(), inst.Scale())
	return Varyings{Clip: s.camera.Clip(world), Color: v.Attribute}
}

func (s scaleStage) Fragment(in Varyings) mgl32.Vec4 { return in.Color }

type paletteStage struct {
	camera  *CameraUniform
	palette *Palette
}

func (s paletteStage) Variant() Variant { return VariantPalette }

// Vertex passes the normal through in object space; it is not corrected for
// non-uniform scale.
func (s paletteStage) Vertex(v VertexInput, inst InstanceAttrs) Varyings {
	world := WorldPosition(v.Position, inst.Position(), inst.Scale())
	return Varyings{
		Clip:   s.camera.Clip(world),
		Normal: v.Attribute.Vec3(),
		Misc:   inst.Misc(),
	}
}

func (s paletteStage) Fragment(in Varyings) mgl32.Vec4 {
	tint := s.palette.Tint(in.Misc[0])
	return tint.Mul(LightTerm(in.Normal)).Vec4(1)
}
