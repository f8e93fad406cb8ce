package scene

import (
	"bytes"
	"math"
	"testing"

	instancer "github.com/gekko3d/instancer"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLibrary(t *testing.T) {
	lib := DefaultLibrary()
	require.Equal(t, 3, lib.Len())

	high, ok := lib.ByID(ArchetypeID("highrise_box"))
	require.True(t, ok)
	assert.Equal(t, uint16(1), high.Index)
	assert.Equal(t, core.CategoryHigh, high.Category)
	assert.Equal(t, 5, int(high.ID.Version()))

	assert.Equal(t, []uint16{0}, lib.IndicesByCategory(core.CategoryLow))
	assert.Equal(t, []uint16{2}, lib.IndicesByCategory(core.CategoryLand))

	_, ok = lib.ByIndex(3)
	assert.False(t, ok)
	assert.Len(t, lib.All(), 3)
}

func TestLibrary_RegisterErrors(t *testing.T) {
	lib := DefaultLibrary()
	_, err := lib.Register("lowrise_box", core.CategoryLow, mgl32.Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrDuplicateArchetype)

	_, err = lib.Register("flat", core.CategoryLow, mgl32.Vec3{1, 0, 1})
	assert.ErrorIs(t, err, ErrInvalidArchetype)

	_, err = lib.Register("", core.CategoryLow, mgl32.Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidArchetype)

	a, err := lib.Register("timber_house_b", core.CategoryLow, mgl32.Vec3{1.2, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, uint16(3), a.Index)
	assert.Equal(t, []uint16{0, 3}, lib.IndicesByCategory(core.CategoryLow))
	assert.Equal(t, ArchetypeID("timber_house_b"), a.ID)
}

func TestLODConfig_Classify(t *testing.T) {
	c := DefaultLODConfig()
	tests := []struct {
		dist float32
		lod  LOD
		ok   bool
	}{
		{0, LOD0, true},
		{90, LOD0, true},
		{90.5, LOD1, true},
		{190, LOD1, true},
		{191, LODBillboard, true},
		{380, LODBillboard, true},
		{380.5, 0, false},
	}
	for _, tc := range tests {
		lod, ok := c.Classify(tc.dist)
		assert.Equal(t, tc.ok, ok, "dist=%v", tc.dist)
		if tc.ok {
			assert.Equal(t, tc.lod, lod, "dist=%v", tc.dist)
		}
	}
}

// camera at the origin looking down -Z
func testView() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 1000)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func testPlacements() []Placement {
	one := mgl32.Vec3{1, 1, 1}
	return []Placement{
		{Center: mgl32.Vec3{0, 0, -50}, Scale: one, Archetype: 0},
		{Center: mgl32.Vec3{0, 0, -150}, Scale: one, Archetype: 1},
		{Center: mgl32.Vec3{0, 0, -300}, Scale: one, Archetype: 2},
		{Center: mgl32.Vec3{0, 0, -500}, Scale: one, Archetype: 0}, // past cull
		{Center: mgl32.Vec3{0, 0, 50}, Scale: one, Archetype: 0},   // behind
		{Center: mgl32.Vec3{5, 0, -20}, Scale: one, Archetype: 99}, // unknown
		{Center: mgl32.Vec3{0, 0, -60}, Scale: mgl32.Vec3{2, 2, 2}, Archetype: 0},
		{Center: mgl32.Vec3{10, 0, -250}, Scale: one, Archetype: 1},
	}
}

func TestBatcher_Build(t *testing.T) {
	b := NewBatcher(DefaultLibrary(), DefaultLODConfig(), nil)
	f := b.Build(testPlacements(), testView(), mgl32.Vec3{})

	assert.Equal(t, 5, f.Visible)
	assert.Equal(t, 2, f.Culled)
	assert.Equal(t, 1, f.Skipped)

	lod0 := BatchKey{LOD: LOD0, Category: core.CategoryLow, Archetype: 0}
	lod1 := BatchKey{LOD: LOD1, Category: core.CategoryHigh, Archetype: 1}
	assert.Equal(t, []BatchKey{GroundKey, lod0, lod1, BillboardKey}, f.Keys())

	assert.Equal(t, []core.PaletteInstance{GroundInstance}, f.Batches[GroundKey])

	require.Equal(t, 2, f.Count(lod0))
	assert.Equal(t, mgl32.Vec3{0, 0, -50}, f.Batches[lod0][0].Position)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, f.Batches[lod0][1].Scale)
	assert.Equal(t, uint16(0), f.Batches[lod0][1].AuxID)

	require.Equal(t, 1, f.Count(lod1))
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, f.Batches[lod1][0].Attrs().Misc())

	bills := f.Batches[BillboardKey]
	require.Len(t, bills, 2)
	// pyramid half (1, 0.75, 1): width 1, height 1.5
	assert.Equal(t, mgl32.Vec3{1, 1.5, 1}, bills[0].Scale)
	// highrise half (0.45, 3, 0.45): width clamps to 0.5
	assert.Equal(t, mgl32.Vec3{0.5, 6, 1}, bills[1].Scale)
	for _, bb := range bills {
		assert.Equal(t, core.CategoryHigh, bb.Category)
		assert.Equal(t, uint16(0), bb.AuxID)
	}
}

func TestBatcher_GroundAlwaysPresent(t *testing.T) {
	b := NewBatcher(DefaultLibrary(), DefaultLODConfig(), nil)
	f := b.Build(nil, testView(), mgl32.Vec3{})
	assert.Equal(t, []BatchKey{GroundKey}, f.Keys())
	assert.Equal(t, float32(-0.05), f.Batches[GroundKey][0].Position.Y())
	assert.Equal(t, core.CategoryLand, f.Batches[GroundKey][0].Category)
}

func TestBatcher_BuildIndexedMatchesBuild(t *testing.T) {
	var buf bytes.Buffer
	logger := instancer.NewDefaultLoggerTo(&buf, &buf, "scene", true)
	b := NewBatcher(DefaultLibrary(), DefaultLODConfig(), logger)

	placements := testPlacements()
	want := b.Build(placements, testView(), mgl32.Vec3{})
	got := b.BuildIndexed(NewSpatialIndex(placements, 32), testView(), mgl32.Vec3{})
	assert.Equal(t, want, got)
	assert.Contains(t, buf.String(), "frame: 5 visible, 2 culled, 1 skipped, 4 batches, 2 billboards")

	city := Grid(40, 40, 12, DefaultLibrary())
	cam := mgl32.Vec3{30, 20, 60}
	vp := mgl32.Perspective(mgl32.DegToRad(60), 1.5, 0.1, 1000).
		Mul4(mgl32.LookAtV(cam, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}))
	assert.Equal(t, b.Build(city, vp, cam).Batches, b.BuildIndexed(NewSpatialIndex(city, 25), vp, cam).Batches)
}

func TestBatcher_BuildIndexedUnboundedCull(t *testing.T) {
	lod := LODConfig{LOD0: 90, LOD1: 190, Cull: float32(math.Inf(1))}
	b := NewBatcher(DefaultLibrary(), lod, nil)

	city := Grid(8, 8, 12, DefaultLibrary())
	cam := mgl32.Vec3{0, 20, 80}
	vp := mgl32.Perspective(mgl32.DegToRad(60), 1.5, 0.1, 1000).
		Mul4(mgl32.LookAtV(cam, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}))

	want := b.Build(city, vp, cam)
	require.Greater(t, want.Visible, 0)
	assert.Equal(t, want, b.BuildIndexed(NewSpatialIndex(city, 25), vp, cam))
}

func TestBatcher_BuildIndexedSkipsUnknownOutsideRadius(t *testing.T) {
	b := NewBatcher(DefaultLibrary(), DefaultLODConfig(), nil)
	placements := append(testPlacements(),
		Placement{Center: mgl32.Vec3{0, 0, -2000}, Scale: mgl32.Vec3{1, 1, 1}, Archetype: 42})

	want := b.Build(placements, testView(), mgl32.Vec3{})
	got := b.BuildIndexed(NewSpatialIndex(placements, 32), testView(), mgl32.Vec3{})
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, 2, got.Culled)
	assert.Equal(t, want, got)
}

func TestSpatialIndex_QueryRadiusIsSuperset(t *testing.T) {
	city := Grid(30, 30, 7, DefaultLibrary())
	idx := NewSpatialIndex(city, 10)
	center := mgl32.Vec3{12, 0, -8}
	const radius = 40

	got := map[int]bool{}
	prev := -1
	for _, i := range idx.QueryRadius(center, radius) {
		assert.Greater(t, i, prev, "results ascend without duplicates")
		prev = i
		got[i] = true
	}
	for i, p := range city {
		d := mgl32.Vec2{p.Center.X() - center.X(), p.Center.Z() - center.Z()}.Len()
		if d <= radius {
			assert.True(t, got[i], "placement %d at distance %v missing", i, d)
		}
	}
	assert.Less(t, len(got), len(city))

	// a radius wider than the city takes the cell scan path
	assert.Len(t, idx.QueryRadius(center, 10000), len(city))

	inf := float32(math.Inf(1))
	assert.Len(t, idx.QueryRadius(center, inf), len(city))
	assert.Len(t, idx.QueryRadius(mgl32.Vec3{inf, 0, 0}, radius), len(city))
}

func TestGrid(t *testing.T) {
	lib := DefaultLibrary()
	g := Grid(3, 2, 10, lib)
	require.Len(t, g, 6)
	assert.Equal(t, g, Grid(3, 2, 10, lib))

	xs := map[float32]bool{}
	zs := map[float32]bool{}
	for _, p := range g {
		xs[p.Center.X()] = true
		zs[p.Center.Z()] = true
		arch, ok := lib.ByIndex(p.Archetype)
		require.True(t, ok)
		assert.Equal(t, arch.BaseHalf.Y()*p.Scale.Y(), p.Center.Y(), "rests on the ground")
	}
	assert.Equal(t, map[float32]bool{-10: true, 0: true, 10: true}, xs)
	assert.Equal(t, map[float32]bool{-5: true, 5: true}, zs)

	assert.Nil(t, Grid(0, 4, 1, lib))
	assert.Nil(t, Grid(4, 4, 1, NewLibrary()))
}
