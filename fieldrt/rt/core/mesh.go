package core

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/gekko3d/meshfield/fieldrt/rt/bvh"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle mesh. Normals are per vertex and may be empty.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Validate checks that indices reference existing vertices.
func (m *Mesh) Validate() error {
	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh has %d indices, want a non-zero multiple of 3", len(m.Indices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh has %d normals for %d positions", len(m.Normals), len(m.Positions))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("index %d out of range (%d positions)", idx, len(m.Positions))
		}
	}
	return nil
}

// SurfaceSample is a point on the mesh and the outward normal there.
type SurfaceSample struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// Sampler draws uniformly distributed points on a surface.
type Sampler interface {
	Sample(rng *rand.Rand) SurfaceSample
}

// SurfaceQuery is the nearest-hit ray test the particle field bounces against.
type SurfaceQuery interface {
	NearestHit(origin, direction mgl32.Vec3) (bvh.Hit, bool)
}

// ConstraintSurface is a static mesh plus its ray acceleration structure.
// Built once; only read afterwards.
type ConstraintSurface struct {
	Mesh *Mesh
	BVH  *bvh.TriangleBVH

	cumulativeArea []float64
	totalArea      float64
}

func NewConstraintSurface(mesh *Mesh) (*ConstraintSurface, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	s := &ConstraintSurface{
		Mesh:           mesh,
		BVH:            bvh.Build(mesh.Positions, mesh.Indices),
		cumulativeArea: make([]float64, mesh.TriangleCount()),
	}

	total := 0.0
	for i := 0; i < mesh.TriangleCount(); i++ {
		a, b, c := s.corners(i)
		total += float64(b.Sub(a).Cross(c.Sub(a)).Len()) * 0.5
		s.cumulativeArea[i] = total
	}
	if total <= 0 {
		return nil, fmt.Errorf("mesh has zero surface area")
	}
	s.totalArea = total

	return s, nil
}

func (s *ConstraintSurface) NearestHit(origin, direction mgl32.Vec3) (bvh.Hit, bool) {
	return s.BVH.NearestHit(origin, direction)
}

func (s *ConstraintSurface) Area() float64 {
	return s.totalArea
}

// Sample picks a triangle weighted by area, then a uniform point inside it.
// The normal is interpolated from vertex normals when present, else the face normal.
func (s *ConstraintSurface) Sample(rng *rand.Rand) SurfaceSample {
	target := rng.Float64() * s.totalArea
	tri := sort.SearchFloat64s(s.cumulativeArea, target)
	if tri >= len(s.cumulativeArea) {
		tri = len(s.cumulativeArea) - 1
	}

	u, v := rng.Float32(), rng.Float32()
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	w := 1 - u - v

	a, b, c := s.corners(tri)
	point := a.Mul(w).Add(b.Mul(u)).Add(c.Mul(v))

	normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
	if len(s.Mesh.Normals) > 0 {
		ia, ib, ic := s.Mesh.Indices[tri*3], s.Mesh.Indices[tri*3+1], s.Mesh.Indices[tri*3+2]
		n := s.Mesh.Normals[ia].Mul(w).Add(s.Mesh.Normals[ib].Mul(u)).Add(s.Mesh.Normals[ic].Mul(v))
		if n.Len() > 1e-6 {
			normal = n.Normalize()
		}
	}

	return SurfaceSample{Point: point, Normal: normal}
}

func (s *ConstraintSurface) corners(tri int) (mgl32.Vec3, mgl32.Vec3, mgl32.Vec3) {
	idx := s.Mesh.Indices[tri*3 : tri*3+3]
	return s.Mesh.Positions[idx[0]], s.Mesh.Positions[idx[1]], s.Mesh.Positions[idx[2]]
}
