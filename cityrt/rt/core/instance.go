package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceAttrs are the instance-rate attribute slots as the vertex stage reads them,
// starting at shader location 2. Unused slots are zero.
//
//	matrix:  [0..3] model matrix columns
//	scale:   [0] position, [1] scale
//	palette: [0] position, [1] scale, [2] misc (x = category band, y = aux id)
type InstanceAttrs [4]mgl32.Vec4

// Matrix rebuilds the model matrix from four column slots.
func (a InstanceAttrs) Matrix() mgl32.Mat4 {
	return mgl32.Mat4FromCols(a[0], a[1], a[2], a[3])
}

func (a InstanceAttrs) Position() mgl32.Vec3 { return a[0].Vec3() }
func (a InstanceAttrs) Scale() mgl32.Vec3    { return a[1].Vec3() }
func (a InstanceAttrs) Misc() mgl32.Vec3     { return a[2].Vec3() }

// InstanceRecord is any per-instance record that can be lowered to attribute slots.
type InstanceRecord interface {
	Attrs() InstanceAttrs
}

// MatrixInstance carries an arbitrary affine transform per instance.
// The matrix is one logical field; Slots is its only serialisation into attributes.
type MatrixInstance struct {
	Model mgl32.Mat4
}

func NewMatrixInstance(t Transform) MatrixInstance {
	return MatrixInstance{Model: t.Model()}
}

// Slots splits the model matrix into the four vec4 attributes at locations 2..5.
// They are the matrix columns, the order WGSL's mat4x4<f32>(a, b, c, d) consumes.
func (m MatrixInstance) Slots() [4]mgl32.Vec4 {
	return [4]mgl32.Vec4{m.Model.Col(0), m.Model.Col(1), m.Model.Col(2), m.Model.Col(3)}
}

// MatrixInstanceFromSlots is the inverse of Slots.
func MatrixInstanceFromSlots(s [4]mgl32.Vec4) MatrixInstance {
	return MatrixInstance{Model: mgl32.Mat4FromCols(s[0], s[1], s[2], s[3])}
}

func (m MatrixInstance) Attrs() InstanceAttrs {
	return InstanceAttrs(m.Slots())
}

// ScaleInstance is an axis-aligned placement: translate and scale, no rotation.
// Zero or negative scale components are accepted and degenerate or mirror the mesh.
type ScaleInstance struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3
}

func (s ScaleInstance) Attrs() InstanceAttrs {
	return InstanceAttrs{s.Position.Vec4(0), s.Scale.Vec4(0)}
}

// PaletteInstance adds a tint category and an auxiliary id (the archetype index).
type PaletteInstance struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Category Category
	AuxID    uint16
}

// MiscSlot lowers category and aux id into the float misc channel.
func (p PaletteInstance) MiscSlot() mgl32.Vec4 {
	return mgl32.Vec4{p.Category.Float(), float32(p.AuxID), 0, 0}
}

func (p PaletteInstance) Attrs() InstanceAttrs {
	return InstanceAttrs{p.Position.Vec4(0), p.Scale.Vec4(0), p.MiscSlot()}
}
