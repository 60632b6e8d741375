package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Icosphere builds a closed sphere by subdividing an icosahedron.
// Winding is counter-clockwise seen from outside.
func Icosphere(radius float32, subdivisions int) *Mesh {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)

	positions := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range positions {
		positions[i] = positions[i].Normalize()
	}

	indices := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{a, b}
			if a > b {
				key = [2]uint32{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			p := positions[a].Add(positions[b]).Mul(0.5).Normalize()
			positions = append(positions, p)
			idx := uint32(len(positions) - 1)
			midpoints[key] = idx
			return idx
		}

		next := make([]uint32, 0, len(indices)*4)
		for i := 0; i < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		indices = next
	}

	normals := make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		normals[i] = p
		positions[i] = p.Mul(radius)
	}

	return &Mesh{Positions: positions, Normals: normals, Indices: indices}
}

// Torus builds a ring around the Y axis. rings segments the main circle, sides the tube.
func Torus(majorRadius, minorRadius float32, rings, sides int) *Mesh {
	if rings < 3 {
		rings = 3
	}
	if sides < 3 {
		sides = 3
	}

	positions := make([]mgl32.Vec3, 0, rings*sides)
	normals := make([]mgl32.Vec3, 0, rings*sides)
	for i := 0; i < rings; i++ {
		u := 2 * math.Pi * float64(i) / float64(rings)
		cu, su := float32(math.Cos(u)), float32(math.Sin(u))
		for j := 0; j < sides; j++ {
			v := 2 * math.Pi * float64(j) / float64(sides)
			cv, sv := float32(math.Cos(v)), float32(math.Sin(v))

			ring := majorRadius + minorRadius*cv
			positions = append(positions, mgl32.Vec3{ring * cu, minorRadius * sv, ring * su})
			normals = append(normals, mgl32.Vec3{cv * cu, sv, cv * su})
		}
	}

	at := func(i, j int) uint32 {
		return uint32((i%rings)*sides + j%sides)
	}

	indices := make([]uint32, 0, rings*sides*6)
	for i := 0; i < rings; i++ {
		for j := 0; j < sides; j++ {
			p00, p01, p11, p10 := at(i, j), at(i, j+1), at(i+1, j+1), at(i+1, j)
			indices = append(indices, p00, p01, p11, p00, p11, p10)
		}
	}

	return &Mesh{Positions: positions, Normals: normals, Indices: indices}
}
