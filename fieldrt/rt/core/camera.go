package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState orbits a target at a fixed distance. Y-up.
type CameraState struct {
	Target     mgl32.Vec3
	Distance   float32
	Yaw        float32
	Pitch      float32
	FovDegrees float32
	OrbitSpeed float32 // radians per second of yaw
	Near, Far  float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Distance:   3.5,
		Pitch:      0.35,
		FovDegrees: 45,
		OrbitSpeed: 0.15,
		Near:       0.05,
		Far:        100,
	}
}

func (c *CameraState) Position() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	offset := mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset.Mul(c.Distance))
}

// Advance spins the camera around the target.
func (c *CameraState) Advance(dt float32) {
	c.Yaw += c.OrbitSpeed * dt
	if c.Yaw > 2*math.Pi {
		c.Yaw -= 2 * math.Pi
	}
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return clipCorrection.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), aspect, c.Near, c.Far))
}

// Remaps OpenGL clip depth [-1,1] to the WebGPU range [0,1].
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func (c *CameraState) ViewProj(aspect float32) mgl32.Mat4 {
	return c.GetProjMatrix(aspect).Mul4(c.GetViewMatrix())
}
