package core

import "fmt"

// Category selects the palette tint of an instance.
type Category uint8

const (
	CategoryLow Category = iota
	CategoryHigh
	CategoryLand
)

// Band thresholds of the packed category channel. Comparisons are strict less-than.
const (
	bandLowMax  float32 = 0.5
	bandHighMax float32 = 1.5
)

func (c Category) String() string {
	switch c {
	case CategoryLow:
		return "low"
	case CategoryHigh:
		return "high"
	case CategoryLand:
		return "land"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Float lowers the category into the float channel of the packed instance.
// Lowered values sit at the band centres, never on a threshold.
// Out-of-range categories lower to their numeric value and land in the last band.
func (c Category) Float() float32 {
	return float32(c)
}

// SelectBand applies the shader's threshold rule to a packed category value:
// x < 0.5 is low, x < 1.5 is high, anything else (including NaN) is land.
func SelectBand(x float32) Category {
	if x < bandLowMax {
		return CategoryLow
	}
	if x < bandHighMax {
		return CategoryHigh
	}
	return CategoryLand
}
