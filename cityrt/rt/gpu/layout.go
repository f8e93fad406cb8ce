package gpu

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrLayoutMismatch reports a vertex buffer layout that disagrees with the
// attribute locations a variant's shader declares.
var ErrLayoutMismatch = errors.New("vertex layout mismatch")

const (
	VertexSlot   = 0
	InstanceSlot = 1
)

// MatrixInstanceRaw is the instance-rate record of the matrix pipeline.
// The model matrix is uploaded as four column vec4 at locations 2..5.
type MatrixInstanceRaw struct {
	Model mgl32.Mat4 `rt:"layout" format:"mat4" location:"2"`
}

// ScaleInstanceRaw is the instance-rate record of the position+scale pipeline.
type ScaleInstanceRaw struct {
	Position mgl32.Vec3 `rt:"layout" format:"float3" location:"2"`
	Scale    mgl32.Vec3 `rt:"layout" format:"float3" location:"3"`
}

// PaletteInstanceRaw keeps every slot vec4-wide with w = 0; the shader reads
// the first three components.
type PaletteInstanceRaw struct {
	Position mgl32.Vec4 `rt:"layout" format:"float3" location:"2"`
	Scale    mgl32.Vec4 `rt:"layout" format:"float3" location:"3"`
	Misc     mgl32.Vec4 `rt:"layout" format:"float3" location:"4"`
}

func parseFormat(name string) (wgpu.VertexFormat, error) {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2, nil
	case "float3":
		return wgpu.VertexFormatFloat32x3, nil
	case "float4":
		return wgpu.VertexFormatFloat32x4, nil
	default:
		return wgpu.VertexFormat(0), fmt.Errorf("unsupported vertex layout format: %q", name)
	}
}

func formatSize(f wgpu.VertexFormat) uint64 {
	switch f {
	case wgpu.VertexFormatFloat32x2:
		return 8
	case wgpu.VertexFormatFloat32x3:
		return 12
	case wgpu.VertexFormatFloat32x4:
		return 16
	}
	return 0
}

// VertexLayoutOf derives a buffer layout from the `rt:"layout"` fields of a
// record struct. A "mat4" field expands to four consecutive float4 locations.
func VertexLayoutOf(record any, stepMode wgpu.VertexStepMode) (wgpu.VertexBufferLayout, error) {
	t := reflect.TypeOf(record)
	if t == nil || t.Kind() != reflect.Struct {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex record must be a struct, got %v", t)
	}

	var attributes []wgpu.VertexAttribute
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("rt") != "layout" {
			continue
		}
		location, err := strconv.Atoi(field.Tag.Get("location"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("%s.%s: bad location: %w", t.Name(), field.Name, err)
		}

		if field.Tag.Get("format") == "mat4" {
			for col := 0; col < 4; col++ {
				attributes = append(attributes, wgpu.VertexAttribute{
					ShaderLocation: uint32(location + col),
					Offset:         uint64(field.Offset) + uint64(col*16),
					Format:         wgpu.VertexFormatFloat32x4,
				})
			}
			continue
		}

		format, err := parseFormat(field.Tag.Get("format"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}
		attributes = append(attributes, wgpu.VertexAttribute{
			ShaderLocation: uint32(location),
			Offset:         uint64(field.Offset),
			Format:         format,
		})
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(t.Size()),
		StepMode:    stepMode,
		Attributes:  attributes,
	}, nil
}

func vertexRecordFor(v core.Variant) any {
	if v == core.VariantPalette {
		return core.NormalVertex{}
	}
	return core.ColorVertex{}
}

func instanceRecordFor(v core.Variant) any {
	switch v {
	case core.VariantMatrix:
		return MatrixInstanceRaw{}
	case core.VariantScale:
		return ScaleInstanceRaw{}
	case core.VariantPalette:
		return PaletteInstanceRaw{}
	}
	return nil
}

// instanceLocations lists the instance-rate locations each shader declares.
var instanceLocations = map[core.Variant][]uint32{
	core.VariantStatic:  nil,
	core.VariantMatrix:  {2, 3, 4, 5},
	core.VariantScale:   {2, 3},
	core.VariantPalette: {2, 3, 4},
}

// LayoutsFor returns the vertex buffer layouts a variant's pipeline binds:
// slot 0 per-vertex, slot 1 per-instance for the instanced variants.
func LayoutsFor(v core.Variant) ([]wgpu.VertexBufferLayout, error) {
	if _, ok := instanceLocations[v]; !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownVariant, int(v))
	}
	vertexLayout, err := VertexLayoutOf(vertexRecordFor(v), wgpu.VertexStepModeVertex)
	if err != nil {
		return nil, err
	}
	layouts := []wgpu.VertexBufferLayout{vertexLayout}
	if !v.Instanced() {
		return layouts, nil
	}
	instanceLayout, err := VertexLayoutOf(instanceRecordFor(v), wgpu.VertexStepModeInstance)
	if err != nil {
		return nil, err
	}
	return append(layouts, instanceLayout), nil
}

// ValidateLayouts checks layouts against what the variant's shader expects:
// slot count, step mode per slot, the exact location set, no location bound
// twice and no attribute reaching past its stride.
func ValidateLayouts(v core.Variant, layouts []wgpu.VertexBufferLayout) error {
	want, ok := instanceLocations[v]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrUnknownVariant, int(v))
	}
	slots := 1
	if v.Instanced() {
		slots = 2
	}
	if len(layouts) != slots {
		return fmt.Errorf("%w: %s expects %d buffer slots, got %d", ErrLayoutMismatch, v, slots, len(layouts))
	}

	seen := map[uint32]int{}
	for slot, l := range layouts {
		wantStep := wgpu.VertexStepModeVertex
		if slot == InstanceSlot {
			wantStep = wgpu.VertexStepModeInstance
		}
		if l.StepMode != wantStep {
			return fmt.Errorf("%w: %s slot %d has step mode %v, want %v", ErrLayoutMismatch, v, slot, l.StepMode, wantStep)
		}
		for _, a := range l.Attributes {
			if prev, dup := seen[a.ShaderLocation]; dup {
				return fmt.Errorf("%w: location %d bound by slots %d and %d", ErrLayoutMismatch, a.ShaderLocation, prev, slot)
			}
			seen[a.ShaderLocation] = slot
			size := formatSize(a.Format)
			if size == 0 || a.Offset+size > l.ArrayStride {
				return fmt.Errorf("%w: location %d at offset %d overruns stride %d", ErrLayoutMismatch, a.ShaderLocation, a.Offset, l.ArrayStride)
			}
		}
	}

	expected := append([]uint32{0, 1}, want...)
	got := make([]uint32, 0, len(seen))
	for loc := range seen {
		got = append(got, loc)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if !reflect.DeepEqual(got, expected) {
		return fmt.Errorf("%w: %s binds locations %v, shader declares %v", ErrLayoutMismatch, v, got, expected)
	}
	for _, loc := range want {
		if seen[loc] != InstanceSlot {
			return fmt.Errorf("%w: location %d must be instance-rate", ErrLayoutMismatch, loc)
		}
	}
	return nil
}
