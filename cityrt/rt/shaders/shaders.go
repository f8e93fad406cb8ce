package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gekko3d/instancer/cityrt/rt/core"

	"github.com/gogpu/naga"
)

const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

//go:embed static.wgsl
var StaticWGSL string

//go:embed matrix.wgsl
var MatrixWGSL string

//go:embed scale.wgsl
var ScaleWGSL string

//go:embed palette.wgsl
var PaletteWGSL string

// Source returns the WGSL program of a variant.
func Source(v core.Variant) (string, error) {
	switch v {
	case core.VariantStatic:
		return StaticWGSL, nil
	case core.VariantMatrix:
		return MatrixWGSL, nil
	case core.VariantScale:
		return ScaleWGSL, nil
	case core.VariantPalette:
		return PaletteWGSL, nil
	}
	return "", fmt.Errorf("%w: %d", core.ErrUnknownVariant, int(v))
}

// Compile translates a variant's WGSL to SPIR-V offline. The driver compiles
// the WGSL itself at pipeline creation; this only catches shader errors before
// a device exists.
func Compile(v core.Variant) ([]byte, error) {
	src, err := Source(v)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s shader: %w", v, err)
	}
	return spirv, nil
}
