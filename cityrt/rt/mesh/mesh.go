// Package mesh builds the procedural meshes of the city demo on the CPU.
// Everything is centred on the origin; instances place and scale it.
package mesh

import (
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is a vertex record that exposes its shader input.
type Vertex interface {
	core.ColorVertex | core.NormalVertex
	Input() core.VertexInput
}

// Mesh is an indexed triangle list.
type Mesh[V Vertex] struct {
	Name     string
	Vertices []V
	Indices  []uint16
}

// Bounds returns the axis-aligned box enclosing every vertex.
func (m Mesh[V]) Bounds() (min, max mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	min = m.Vertices[0].Input().Position
	max = min
	for _, v := range m.Vertices[1:] {
		p := v.Input().Position
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

// HalfExtents is the half size of Bounds.
func (m Mesh[V]) HalfExtents() mgl32.Vec3 {
	min, max := m.Bounds()
	return max.Sub(min).Mul(0.5)
}

func Triangle() Mesh[core.ColorVertex] {
	return Mesh[core.ColorVertex]{
		Name: "triangle",
		Vertices: []core.ColorVertex{
			{Position: mgl32.Vec3{0, 0.5, 0}, Color: mgl32.Vec4{1, 0, 0, 1}},
			{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec4{0, 1, 0, 1}},
			{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec4{0, 0, 1, 1}},
		},
		Indices: []uint16{0, 1, 2},
	}
}

// ColorCube is the shared-corner unit cube: red front, green back.
func ColorCube() Mesh[core.ColorVertex] {
	red := mgl32.Vec4{1, 0, 0, 1}
	green := mgl32.Vec4{0, 1, 0, 1}
	return Mesh[core.ColorVertex]{
		Name: "color cube",
		Vertices: []core.ColorVertex{
			{Position: mgl32.Vec3{-0.5, -0.5, 0.5}, Color: red},
			{Position: mgl32.Vec3{0.5, -0.5, 0.5}, Color: red},
			{Position: mgl32.Vec3{0.5, 0.5, 0.5}, Color: red},
			{Position: mgl32.Vec3{-0.5, 0.5, 0.5}, Color: red},

			{Position: mgl32.Vec3{-0.5, -0.5, -0.5}, Color: green},
			{Position: mgl32.Vec3{0.5, -0.5, -0.5}, Color: green},
			{Position: mgl32.Vec3{0.5, 0.5, -0.5}, Color: green},
			{Position: mgl32.Vec3{-0.5, 0.5, -0.5}, Color: green},
		},
		Indices: []uint16{
			0, 1, 2, 2, 3, 0, // front
			4, 5, 6, 6, 7, 4, // back
			0, 1, 5, 5, 4, 0, // bottom
			1, 2, 6, 6, 5, 1, // right
			2, 3, 7, 7, 6, 2, // top
			3, 0, 4, 4, 7, 3, // left
		},
	}
}

// face is a quad with outward normal n spanned by u and v, u x v = n.
type face struct {
	n, u, v mgl32.Vec3
}

var boxFaces = []face{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

var quadCorners = [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

func appendQuad(m *Mesh[core.NormalVertex], f face, half mgl32.Vec3) {
	base := uint16(len(m.Vertices))
	for _, c := range quadCorners {
		p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
		m.Vertices = append(m.Vertices, core.NormalVertex{
			Position: mgl32.Vec3{p[0] * half[0], p[1] * half[1], p[2] * half[2]},
			Normal:   f.n,
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
}

// Box is a flat-shaded box with per-face normals: 24 vertices, 36 indices.
func Box(hx, hy, hz float32) Mesh[core.NormalVertex] {
	m := Mesh[core.NormalVertex]{Name: "box"}
	half := mgl32.Vec3{hx, hy, hz}
	for _, f := range boxFaces {
		appendQuad(&m, f, half)
	}
	return m
}

// Pyramid has a square base at -hy and its apex at +hy.
func Pyramid(hx, hy, hz float32) Mesh[core.NormalVertex] {
	m := Mesh[core.NormalVertex]{Name: "pyramid"}
	apex := mgl32.Vec3{0, hy, 0}
	base := [4]mgl32.Vec3{
		{-hx, -hy, hz},
		{hx, -hy, hz},
		{hx, -hy, -hz},
		{-hx, -hy, -hz},
	}
	for i := 0; i < 4; i++ {
		a, b := base[i], base[(i+1)%4]
		n := b.Sub(a).Cross(apex.Sub(a)).Normalize()
		idx := uint16(len(m.Vertices))
		m.Vertices = append(m.Vertices,
			core.NormalVertex{Position: a, Normal: n},
			core.NormalVertex{Position: b, Normal: n},
			core.NormalVertex{Position: apex, Normal: n},
		)
		m.Indices = append(m.Indices, idx, idx+1, idx+2)
	}
	appendQuad(&m, boxFaces[3], mgl32.Vec3{hx, hy, hz})
	return m
}

// Ground is a flat square of half size `half` in the XZ plane facing +Y.
func Ground(half float32) Mesh[core.NormalVertex] {
	m := Mesh[core.NormalVertex]{Name: "ground"}
	up := boxFaces[2]
	up.n = mgl32.Vec3{}
	appendQuad(&m, up, mgl32.Vec3{half, 0, half})
	for i := range m.Vertices {
		m.Vertices[i].Normal = mgl32.Vec3{0, 1, 0}
	}
	return m
}

// Billboard is a unit-height quad two units wide in the XY plane facing +Z.
// Instances scale it by (half width, height, 1).
func Billboard() Mesh[core.NormalVertex] {
	m := Mesh[core.NormalVertex]{Name: "billboard"}
	front := boxFaces[4]
	front.n = mgl32.Vec3{}
	appendQuad(&m, front, mgl32.Vec3{1, 0.5, 0})
	for i := range m.Vertices {
		m.Vertices[i].Normal = mgl32.Vec3{0, 0, 1}
	}
	return m
}

// ForCategory returns the LOD mesh of an archetype footprint: landmarks are
// pyramids, everything else a box.
func ForCategory(c core.Category, half mgl32.Vec3) Mesh[core.NormalVertex] {
	if c == core.CategoryLand {
		return Pyramid(half[0], half[1], half[2])
	}
	return Box(half[0], half[1], half[2])
}
