package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/gekko3d/instancer/cityrt/rt/gpu"
	"github.com/gekko3d/instancer/cityrt/rt/mesh"
	"github.com/gekko3d/instancer/cityrt/rt/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeKey is the single batch the non-palette variants draw.
var CubeKey = scene.BatchKey{LOD: scene.LOD0}

// colorMesh is the mesh of the non-palette variants: the static variant
// draws one triangle, the instanced ones a cube per building.
func colorMesh(v core.Variant) mesh.Mesh[core.ColorVertex] {
	if v == core.VariantStatic {
		return mesh.Triangle()
	}
	return mesh.ColorCube()
}

// PackedBatch is the instance stream of one batch, ready for upload.
type PackedBatch struct {
	Key   scene.BatchKey
	Data  []byte
	Count uint32
}

// PackPaletteFrame packs every non-empty batch of f in draw order.
func PackPaletteFrame(f scene.Frame) ([]PackedBatch, error) {
	keys := f.Keys()
	out := make([]PackedBatch, 0, len(keys))
	for _, k := range keys {
		insts := f.Batches[k]
		data, err := gpu.MarshalInstances(core.VariantPalette, insts)
		if err != nil {
			return nil, fmt.Errorf("pack %v: %w", k, err)
		}
		out = append(out, PackedBatch{Key: k, Data: data, Count: uint32(len(insts))})
	}
	return out, nil
}

// cubeTransforms returns one unit-cube transform per visible building of f.
// Billboards and the ground are left out. yaw spins every cube about +Y.
func cubeTransforms(f scene.Frame, lib *scene.Library, yaw float32) []core.Transform {
	var out []core.Transform
	for _, k := range f.Keys() {
		if k.LOD != scene.LOD0 && k.LOD != scene.LOD1 {
			continue
		}
		arch, ok := lib.ByIndex(k.Archetype)
		if !ok {
			continue
		}
		for _, inst := range f.Batches[k] {
			out = append(out, core.Transform{
				Position: inst.Position,
				Rotation: mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0}),
				Scale: mgl32.Vec3{
					2 * arch.BaseHalf[0] * inst.Scale[0],
					2 * arch.BaseHalf[1] * inst.Scale[1],
					2 * arch.BaseHalf[2] * inst.Scale[2],
				},
			})
		}
	}
	return out
}

// PackCubes packs the visible buildings of f as unit cubes for the matrix or
// scale variant. The scale variant cannot rotate, so yaw only reaches the
// matrix stream.
func PackCubes(v core.Variant, f scene.Frame, lib *scene.Library, yaw float32) (PackedBatch, error) {
	transforms := cubeTransforms(f, lib, yaw)
	var (
		data []byte
		err  error
	)
	switch v {
	case core.VariantMatrix:
		records := make([]core.MatrixInstance, len(transforms))
		for i := range transforms {
			records[i] = core.NewMatrixInstance(transforms[i])
		}
		data, err = gpu.MarshalInstances(v, records)
	case core.VariantScale:
		records := make([]core.ScaleInstance, len(transforms))
		for i := range transforms {
			records[i] = transforms[i].ScaleInstance()
		}
		data, err = gpu.MarshalInstances(v, records)
	default:
		return PackedBatch{}, fmt.Errorf("%w: %s does not draw cubes", gpu.ErrLayoutMismatch, v)
	}
	if err != nil {
		return PackedBatch{}, err
	}
	return PackedBatch{Key: CubeKey, Data: data, Count: uint32(len(transforms))}, nil
}

// pickAlphaMode prefers an opaque surface and falls back to the first mode
// the surface offers.
func pickAlphaMode(modes []wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	for _, m := range modes {
		if m == wgpu.CompositeAlphaModeOpaque {
			return m
		}
	}
	if len(modes) > 0 {
		return modes[0]
	}
	return wgpu.CompositeAlphaModeAuto
}

func aspectRatio(width, height uint32) float32 {
	if width == 0 || height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}
