package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NearestHit casts a ray and returns the closest triangle in front of the origin.
// Both faces are hit; the returned normal is the triangle's winding normal.
// The direction does not need to be normalized; Distance is always in world units.
func (t *TriangleBVH) NearestHit(origin, direction mgl32.Vec3) (Hit, bool) {
	if len(t.triangles) == 0 {
		return Hit{}, false
	}
	l := direction.Len()
	if l == 0 || math.IsNaN(float64(l)) {
		return Hit{}, false
	}
	dir := direction.Mul(1 / l)
	invDir := mgl32.Vec3{safeInv(dir.X()), safeInv(dir.Y()), safeInv(dir.Z())}

	closest := float32(math.Inf(1))
	best := -1

	var stack [64]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		node := &t.Nodes[stack[sp]]

		tNear, tFar := intersectAABB(origin, invDir, node.Min, node.Max)
		if tNear > tFar || tFar < 0 || tNear > closest {
			continue
		}

		if node.IsLeaf() {
			for i := node.LeafFirst; i < node.LeafFirst+node.LeafCount; i++ {
				if d, ok := intersectTriangle(origin, dir, &t.triangles[i]); ok && d < closest {
					closest = d
					best = int(i)
				}
			}
			continue
		}

		if sp+2 > len(stack) {
			// Depth is bounded by log2(triangles/maxLeafSize); this only guards malformed trees.
			continue
		}
		stack[sp] = node.Right
		sp++
		stack[sp] = node.Left
		sp++
	}

	if best < 0 {
		return Hit{}, false
	}
	tri := &t.triangles[best]
	return Hit{Distance: closest, Normal: tri.Normal, Triangle: tri.Index}, true
}

// Möller-Trumbore, no back-face culling.
func intersectTriangle(origin, dir mgl32.Vec3, tri *triangle) (float32, bool) {
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -1e-12 && det < 1e-12 {
		return 0, false
	}
	inv := 1 / det

	s := origin.Sub(tri.A)
	u := s.Dot(p) * inv
	if u < -edgeEpsilon || u > 1+edgeEpsilon {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < -edgeEpsilon || u+v > 1+edgeEpsilon {
		return 0, false
	}
	d := e2.Dot(q) * inv
	if d <= minHitDistance {
		return 0, false
	}
	return d, true
}

func intersectAABB(origin, invDir, minB, maxB mgl32.Vec3) (float32, float32) {
	tMin := float32(0)
	tMax := float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		t1 := (minB[axis] - origin[axis]) * invDir[axis]
		t2 := (maxB[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
	}
	return tMin, tMax
}

func safeInv(v float32) float32 {
	if v > -1e-12 && v < 1e-12 {
		if math.Signbit(float64(v)) {
			return -1e12
		}
		return 1e12
	}
	return 1 / v
}
