package core

import "github.com/go-gl/mathgl/mgl32"

// Smoothstep is the cubic Hermite ease of x from [edge0, edge1] to [0, 1].
func Smoothstep(edge0, edge1, x float32) float32 {
	if x <= edge0 {
		return 0
	}
	if x >= edge1 {
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	return t * t * (3 - 2*t)
}

// Reflect mirrors v about the plane with unit normal n. |v| is preserved.
func Reflect(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}
