package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ExtractFrustum returns the clip planes of vp as (a, b, c, d) with
// a*x + b*y + c*z + d >= 0 inside, normalised, ordered left, right, bottom,
// top, near, far.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near (GL depth -1..1)
		r3.Sub(r2), // far
	}

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 1e-6 {
			planes[i] = p.Mul(1.0 / length)
		}
	}
	return planes
}

// AABBInFrustum reports whether a min/max box touches the frustum.
// It tests the corner furthest along each plane normal.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}
		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return false
		}
	}
	return true
}

// BoxInFrustum is AABBInFrustum for a centre and half extents.
func BoxInFrustum(center, half mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		r := half[0]*abs32(plane[0]) + half[1]*abs32(plane[1]) + half[2]*abs32(plane[2])
		s := plane[0]*center[0] + plane[1]*center[1] + plane[2]*center[2] + plane[3]
		if s < -r {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
