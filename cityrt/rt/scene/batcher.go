package scene

import (
	"fmt"
	"sort"

	instancer "github.com/gekko3d/instancer"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

type LOD uint8

const (
	LODGround LOD = iota
	LOD0
	LOD1
	LODBillboard
)

func (l LOD) String() string {
	switch l {
	case LODGround:
		return "ground"
	case LOD0:
		return "lod0"
	case LOD1:
		return "lod1"
	case LODBillboard:
		return "billboard"
	}
	return fmt.Sprintf("lod(%d)", uint8(l))
}

// LODConfig holds camera distances: full detail up to LOD0, reduced up to
// LOD1, billboards up to Cull, nothing beyond.
type LODConfig struct {
	LOD0 float32
	LOD1 float32
	Cull float32
}

func DefaultLODConfig() LODConfig {
	return LODConfig{LOD0: 90, LOD1: 190, Cull: 380}
}

// Classify maps a camera distance to a level. ok is false past Cull.
func (c LODConfig) Classify(dist float32) (lod LOD, ok bool) {
	switch {
	case dist > c.Cull:
		return 0, false
	case dist <= c.LOD0:
		return LOD0, true
	case dist <= c.LOD1:
		return LOD1, true
	default:
		return LODBillboard, true
	}
}

// Placement is one building in the world.
type Placement struct {
	Center    mgl32.Vec3
	Scale     mgl32.Vec3
	Archetype uint16
}

// BatchKey identifies one instanced draw. Ground and billboard batches use
// zero category and archetype.
type BatchKey struct {
	LOD       LOD
	Category  core.Category
	Archetype uint16
}

func (k BatchKey) String() string {
	switch k.LOD {
	case LODGround, LODBillboard:
		return k.LOD.String()
	}
	return fmt.Sprintf("%s/%s/%d", k.LOD, k.Category, k.Archetype)
}

var (
	GroundKey    = BatchKey{LOD: LODGround}
	BillboardKey = BatchKey{LOD: LODBillboard}
)

// GroundInstance sits just below y = 0 and takes the land colour.
var GroundInstance = core.PaletteInstance{
	Position: mgl32.Vec3{0, -0.05, 0},
	Scale:    mgl32.Vec3{1, 1, 1},
	Category: core.CategoryLand,
}

// Frame is one frame's worth of instance batches.
type Frame struct {
	Batches map[BatchKey][]core.PaletteInstance
	Visible int
	Culled  int
	Skipped int // placements naming an archetype the library does not have
}

// Keys returns the non-empty batches in draw order: ground, LOD0, LOD1,
// billboards; within a level by category then archetype.
func (f Frame) Keys() []BatchKey {
	keys := make([]BatchKey, 0, len(f.Batches))
	for k, insts := range f.Batches {
		if len(insts) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.LOD != b.LOD {
			return a.LOD < b.LOD
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Archetype < b.Archetype
	})
	return keys
}

func (f Frame) Count(k BatchKey) int { return len(f.Batches[k]) }

// Batcher turns placements into per-batch palette instances each frame.
type Batcher struct {
	lib    *Library
	lod    LODConfig
	logger instancer.Logger
}

func NewBatcher(lib *Library, lod LODConfig, logger instancer.Logger) *Batcher {
	return &Batcher{lib: lib, lod: lod, logger: instancer.OrNop(logger)}
}

func (b *Batcher) LOD() LODConfig { return b.lod }

func newFrame() Frame {
	return Frame{Batches: map[BatchKey][]core.PaletteInstance{
		GroundKey: {GroundInstance},
	}}
}

// Build culls and buckets every placement against the view-projection vp
// seen from camPos.
func (b *Batcher) Build(placements []Placement, vp mgl32.Mat4, camPos mgl32.Vec3) Frame {
	frame := newFrame()
	planes := core.ExtractFrustum(vp)
	for _, p := range placements {
		b.add(&frame, p, planes, camPos)
	}
	b.logFrame(frame)
	return frame
}

// BuildIndexed is Build restricted to the placements the index reports
// within the cull distance. Both produce the same batches.
func (b *Batcher) BuildIndexed(idx *SpatialIndex, vp mgl32.Mat4, camPos mgl32.Vec3) Frame {
	frame := newFrame()
	planes := core.ExtractFrustum(vp)
	all := idx.Placements()
	near := make([]bool, len(all))
	for _, i := range idx.QueryRadius(camPos, b.lod.Cull) {
		near[i] = true
	}
	for i, p := range all {
		switch {
		case near[i]:
			b.add(&frame, p, planes, camPos)
		case !b.known(p.Archetype):
			frame.Skipped++
		default:
			frame.Culled++
		}
	}
	b.logFrame(frame)
	return frame
}

func (b *Batcher) add(frame *Frame, p Placement, planes [6]mgl32.Vec4, camPos mgl32.Vec3) {
	arch, ok := b.lib.ByIndex(p.Archetype)
	if !ok {
		frame.Skipped++
		return
	}

	lod, ok := b.lod.Classify(p.Center.Sub(camPos).Len())
	if !ok {
		frame.Culled++
		return
	}

	half := mgl32.Vec3{
		arch.BaseHalf[0] * p.Scale[0],
		arch.BaseHalf[1] * p.Scale[1],
		arch.BaseHalf[2] * p.Scale[2],
	}
	cullHalf := mgl32.Vec3{abs(half[0]), abs(half[1]), abs(half[2])}
	if !core.BoxInFrustum(p.Center, cullHalf, planes) {
		frame.Culled++
		return
	}

	frame.Visible++
	if lod == LODBillboard {
		frame.Batches[BillboardKey] = append(frame.Batches[BillboardKey], core.PaletteInstance{
			Position: p.Center,
			Scale:    mgl32.Vec3{max(half[0], 0.5), max(half[1]*2, 0.5), 1},
			Category: core.CategoryHigh,
		})
		return
	}

	key := BatchKey{LOD: lod, Category: arch.Category, Archetype: arch.Index}
	frame.Batches[key] = append(frame.Batches[key], core.PaletteInstance{
		Position: p.Center,
		Scale:    p.Scale,
		Category: arch.Category,
		AuxID:    arch.Index,
	})
}

func (b *Batcher) logFrame(f Frame) {
	if !b.logger.DebugEnabled() {
		return
	}
	b.logger.Debugf("frame: %d visible, %d culled, %d skipped, %d batches, %d billboards",
		f.Visible, f.Culled, f.Skipped, len(f.Keys()), f.Count(BillboardKey))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func (b *Batcher) known(archetype uint16) bool {
	_, ok := b.lib.ByIndex(archetype)
	return ok
}
