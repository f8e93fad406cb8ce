package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places one instance. The zero Rotation reads as no rotation.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Placed is an unrotated transform.
func Placed(pos, scale mgl32.Vec3) Transform {
	return Transform{Position: pos, Rotation: mgl32.QuatIdent(), Scale: scale}
}

// Model composes scale, then rotation, then translation: M = T * R * S.
func (t Transform) Model() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.rotation().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

func (t Transform) rotation() mgl32.Quat {
	if t.Rotation.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return t.Rotation.Normalize()
}

// Axial reports whether the transform has no rotation, so the scale
// instance reproduces Model exactly.
func (t Transform) Axial() bool {
	return t.rotation().ApproxEqual(mgl32.QuatIdent())
}

// ScaleInstance drops the rotation.
func (t Transform) ScaleInstance() ScaleInstance {
	return ScaleInstance{Position: t.Position, Scale: t.Scale}
}
