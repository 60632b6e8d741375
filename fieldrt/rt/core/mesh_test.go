package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcosphereCounts(t *testing.T) {
	for s := 0; s <= 4; s++ {
		m := Icosphere(1, s)
		faces := 20 << (2 * s)
		assert.Equal(t, faces, m.TriangleCount(), "subdivision %d", s)
		assert.Len(t, m.Positions, faces/2+2, "subdivision %d", s)
		assert.Len(t, m.Normals, len(m.Positions))
		require.NoError(t, m.Validate())
	}
}

func TestIcosphereWindsOutward(t *testing.T) {
	m := Icosphere(2, 2)
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Positions[m.Indices[i*3]], m.Positions[m.Indices[i*3+1]], m.Positions[m.Indices[i*3+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		require.Greater(t, n.Dot(centroid), float32(0), "triangle %d faces inward", i)
	}
	for _, p := range m.Positions {
		assert.InDelta(t, 2.0, p.Len(), 1e-5)
	}
}

func TestTorusWindsOutward(t *testing.T) {
	m := Torus(1, 0.3, 32, 16)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Positions, 32*16)
	assert.Equal(t, 2*32*16, m.TriangleCount())

	for i := 0; i < m.TriangleCount(); i++ {
		ia, ib, ic := m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]
		a, b, c := m.Positions[ia], m.Positions[ib], m.Positions[ic]
		face := b.Sub(a).Cross(c.Sub(a))
		require.Greater(t, face.Dot(m.Normals[ia]), float32(0), "triangle %d faces inward", i)
	}
}

func TestTorusClampsSegments(t *testing.T) {
	m := Torus(1, 0.25, 1, 2)
	assert.Len(t, m.Positions, 9)
	assert.Equal(t, 18, m.TriangleCount())
}

func TestMeshValidate(t *testing.T) {
	tri := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	assert.Error(t, (&Mesh{Positions: tri}).Validate(), "no indices")
	assert.Error(t, (&Mesh{Positions: tri, Indices: []uint32{0, 1}}).Validate(), "partial triangle")
	assert.Error(t, (&Mesh{Positions: tri, Indices: []uint32{0, 1, 3}}).Validate(), "index out of range")
	assert.Error(t, (&Mesh{Positions: tri, Normals: tri[:1], Indices: []uint32{0, 1, 2}}).Validate(), "normal count")
	assert.NoError(t, (&Mesh{Positions: tri, Indices: []uint32{0, 1, 2}}).Validate())
}

func TestConstraintSurfaceRejectsZeroArea(t *testing.T) {
	p := mgl32.Vec3{1, 1, 1}
	_, err := NewConstraintSurface(&Mesh{Positions: []mgl32.Vec3{p, p, p}, Indices: []uint32{0, 1, 2}})
	assert.Error(t, err)
}

func TestConstraintSurfaceArea(t *testing.T) {
	s := newSphereSurface(t)
	assert.InDelta(t, 4*math.Pi, s.Area(), 0.1)
	assert.Equal(t, 20*256, s.BVH.TriangleCount())
}

func TestSamplesLieOnSphere(t *testing.T) {
	s, err := NewConstraintSurface(Icosphere(1, 3))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 500; i++ {
		sample := s.Sample(rng)
		r := sample.Point.Len()
		assert.LessOrEqual(t, r, float32(1+1e-5))
		assert.Greater(t, r, float32(0.99))
		assert.InDelta(t, 1.0, sample.Normal.Len(), 1e-5)
		assert.Greater(t, sample.Normal.Dot(sample.Point.Normalize()), float32(0.99))
	}
}

func TestSamplingIsAreaWeighted(t *testing.T) {
	// Two coplanar triangles, the second three times larger
	mesh := &Mesh{
		Positions: []mgl32.Vec3{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{10, 0, 0}, {13, 0, 0}, {10, 1, 0},
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
	s, err := NewConstraintSurface(mesh)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Area(), 1e-6)

	rng := rand.New(rand.NewSource(11))
	large := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		sample := s.Sample(rng)
		if sample.Point.X() >= 10 {
			large++
		}
		// Face normal is used without vertex normals
		require.Equal(t, mgl32.Vec3{0, 0, 1}, sample.Normal)
	}
	assert.InDelta(t, 0.75, float64(large)/draws, 0.02)
}
