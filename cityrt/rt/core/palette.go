package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Palette is the three-entry tint table bound at group 1, binding 0.
type Palette struct {
	Low  mgl32.Vec3
	High mgl32.Vec3
	Land mgl32.Vec3
}

func DefaultPalette() Palette {
	return Palette{
		Low:  mgl32.Vec3{0.55, 0.40, 0.30},
		High: mgl32.Vec3{0.25, 0.28, 0.30},
		Land: mgl32.Vec3{0.60, 0.48, 0.10},
	}
}

// Color returns the entry of a category. Unknown categories use the land entry.
func (p Palette) Color(c Category) mgl32.Vec3 {
	switch c {
	case CategoryLow:
		return p.Low
	case CategoryHigh:
		return p.High
	default:
		return p.Land
	}
}

// Tint selects an entry from a packed category value using the band thresholds.
func (p Palette) Tint(miscX float32) mgl32.Vec3 {
	return p.Color(SelectBand(miscX))
}
