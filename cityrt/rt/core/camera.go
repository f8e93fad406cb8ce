package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniform is the per-draw view-projection block at group 0, binding 0.
// Every vertex of a draw is multiplied by the same matrix.
type CameraUniform struct {
	ViewProj mgl32.Mat4
}

// Clip maps a world-space point to clip space with w fixed at 1.
func (c CameraUniform) Clip(world mgl32.Vec3) mgl32.Vec4 {
	return c.ViewProj.Mul4x1(world.Vec4(1))
}

const maxPitch = 1.5

// CameraState is a Y-up fly camera.
type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	FovY        float32 // radians
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 20, 40},
		Yaw:         0,
		Pitch:       -0.4,
		FovY:        mgl32.DegToRad(45),
		Near:        0.1,
		Far:         1000,
		Speed:       25.0,
		Sensitivity: 0.002,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// yaw 0 looks down -Z
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *CameraState) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.GetForward())
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

func (c *CameraState) ViewProjection(aspect float32) mgl32.Mat4 {
	return c.ProjectionMatrix(aspect).Mul4(c.ViewMatrix())
}

func (c *CameraState) Uniform(aspect float32) CameraUniform {
	return CameraUniform{ViewProj: c.ViewProjection(aspect)}
}

// Move translates along the camera axes. Inputs are -1..1 intents scaled by Speed*dt.
func (c *CameraState) Move(forward, right, up, dt float32) {
	step := c.Speed * dt
	c.Position = c.Position.
		Add(c.GetForward().Mul(forward * step)).
		Add(c.GetRight().Mul(right * step)).
		Add(mgl32.Vec3{0, up * step, 0})
}

// Look applies a mouse delta in pixels.
func (c *CameraState) Look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)
}
