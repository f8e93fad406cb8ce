package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Grid lays out an nx by nz lattice of buildings centred on the origin.
// Archetype and height vary with the lattice coordinates, so the same
// arguments always yield the same city. Buildings rest on y = 0.
func Grid(nx, nz int, spacing float32, lib *Library) []Placement {
	if nx <= 0 || nz <= 0 || lib == nil || lib.Len() == 0 {
		return nil
	}
	n := lib.Len()
	out := make([]Placement, 0, nx*nz)
	ox := float32(nx-1) * spacing * 0.5
	oz := float32(nz-1) * spacing * 0.5
	for x := 0; x < nx; x++ {
		for z := 0; z < nz; z++ {
			arch, _ := lib.ByIndex(uint16((x*31 + z*17) % n))
			height := 1 + 0.25*float32((x*7+z*13)%5)
			scale := mgl32.Vec3{1, height, 1}
			out = append(out, Placement{
				Center: mgl32.Vec3{
					float32(x)*spacing - ox,
					arch.BaseHalf.Y() * height,
					float32(z)*spacing - oz,
				},
				Scale:     scale,
				Archetype: arch.Index,
			})
		}
	}
	return out
}
