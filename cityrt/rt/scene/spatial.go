package scene

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type cell struct {
	x, z int
}

// SpatialIndex buckets placements by the XZ cell of their centre so the
// batcher only visits placements near the camera.
type SpatialIndex struct {
	cellSize   float32
	cells      map[cell][]int
	placements []Placement
}

func NewSpatialIndex(placements []Placement, cellSize float32) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 1
	}
	s := &SpatialIndex{
		cellSize:   cellSize,
		cells:      make(map[cell][]int),
		placements: placements,
	}
	for i, p := range placements {
		c := s.cellOf(p.Center)
		s.cells[c] = append(s.cells[c], i)
	}
	return s
}

func (s *SpatialIndex) Placements() []Placement { return s.placements }

func (s *SpatialIndex) cellIndex(v float32) int {
	return int(math.Floor(float64(v / s.cellSize)))
}

func (s *SpatialIndex) cellOf(p mgl32.Vec3) cell {
	return cell{s.cellIndex(p.X()), s.cellIndex(p.Z())}
}

// QueryRadius returns, in ascending order, the indices of placements in every
// cell the XZ square of side 2*radius around center touches. It is a
// broadphase: callers still test the exact distance.
// A radius that leaves the float range returns every placement.
func (s *SpatialIndex) QueryRadius(center mgl32.Vec3, radius float32) []int {
	if !finite(center.X()-radius, center.X()+radius, center.Z()-radius, center.Z()+radius) {
		out := make([]int, len(s.placements))
		for i := range out {
			out[i] = i
		}
		return out
	}
	minX, maxX := s.cellIndex(center.X()-radius), s.cellIndex(center.X()+radius)
	minZ, maxZ := s.cellIndex(center.Z()-radius), s.cellIndex(center.Z()+radius)

	var out []int
	if float64(maxX-minX+1)*float64(maxZ-minZ+1) > float64(len(s.cells)) {
		for c, ids := range s.cells {
			if c.x >= minX && c.x <= maxX && c.z >= minZ && c.z <= maxZ {
				out = append(out, ids...)
			}
		}
	} else {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				out = append(out, s.cells[cell{x, z}]...)
			}
		}
	}
	sort.Ints(out)
	return out
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return false
		}
	}
	return true
}
