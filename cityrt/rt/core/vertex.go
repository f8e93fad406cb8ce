package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ColorVertex is the per-vertex record of the static, matrix and scale pipelines.
// Layout: position @0 (12 bytes), color @12 (16 bytes). Stride 28.
type ColorVertex struct {
	Position mgl32.Vec3 `rt:"layout" format:"float3" location:"0"`
	Color    mgl32.Vec4 `rt:"layout" format:"float4" location:"1"`
}

// NormalVertex is the per-vertex record of the palette pipeline.
// Layout: position @0 (12 bytes), normal @12 (12 bytes). Stride 24.
type NormalVertex struct {
	Position mgl32.Vec3 `rt:"layout" format:"float3" location:"0"`
	Normal   mgl32.Vec3 `rt:"layout" format:"float3" location:"1"`
}

// VertexInput is what a vertex stage receives at locations 0 and 1.
// Attribute holds the color, or the normal with w = 0.
type VertexInput struct {
	Position  mgl32.Vec3
	Attribute mgl32.Vec4
}

func (v ColorVertex) Input() VertexInput {
	return VertexInput{Position: v.Position, Attribute: v.Color}
}

func (v NormalVertex) Input() VertexInput {
	return VertexInput{Position: v.Position, Attribute: v.Normal.Vec4(0)}
}
