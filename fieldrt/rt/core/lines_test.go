package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func still(n int) []mgl32.Vec3 {
	v := make([]mgl32.Vec3, n)
	for i := range v {
		v[i] = mgl32.Vec3{1, 0, 0}
	}
	return v
}

func TestLineMesh_CloseParticlesFullAlpha(t *testing.T) {
	field := NewParticleFieldFrom([]mgl32.Vec3{{0, 0, 0}, {0.05, 0, 0}}, still(2))
	lines := NewLineMesh(field.Count(), DefaultLineConfig())

	n := lines.Update(field, 0)

	require.Equal(t, 1, n)
	seg := lines.Segment(0)
	assert.InDelta(t, 0.5, seg.Alpha, 1e-6)
	assert.Equal(t, 0, seg.From)
	assert.Equal(t, 1, seg.To)

	// Endpoint colors are the particle colors at half intensity
	c := field.Color(0).Mul(0.5)
	assert.InDelta(t, c.X(), lines.Colors[0], 1e-6)
	assert.InDelta(t, c.Y(), lines.Colors[1], 1e-6)
	assert.InDelta(t, c.Z(), lines.Colors[2], 1e-6)
}

func TestLineMesh_FarParticlesNoSegment(t *testing.T) {
	field := NewParticleFieldFrom([]mgl32.Vec3{{0, 0, 0}, {0.4, 0, 0}}, still(2))
	lines := NewLineMesh(field.Count(), DefaultLineConfig())

	assert.Equal(t, float32(0), lines.Alpha(0.4))
	assert.Equal(t, 0, lines.Update(field, 0))
	for _, v := range lines.Positions {
		assert.Zero(t, v)
	}
}

func TestLineMesh_FadeIsSmooth(t *testing.T) {
	lines := NewLineMesh(2, DefaultLineConfig())

	assert.InDelta(t, 0.25, lines.Alpha(0.2), 1e-6)
	assert.Greater(t, lines.Alpha(0.15), lines.Alpha(0.25))
	assert.Equal(t, float32(0.5), lines.Alpha(0.1))
	assert.Equal(t, float32(0), lines.Alpha(0.3))
}

func TestLineMesh_PredictsNeighbourOneStepAhead(t *testing.T) {
	field := NewParticleFieldFrom(
		[]mgl32.Vec3{{0, 0, 0}, {0.02, 0, 0}},
		[]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}},
	)
	lines := NewLineMesh(field.Count(), DefaultLineConfig())

	require.Equal(t, 1, lines.Update(field, 0.05))

	seg := lines.Segment(0)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, seg.A, "lower index endpoint is not predicted")
	assert.InDelta(t, 0.02, seg.B.X(), 1e-6)
	assert.InDelta(t, 0.05, seg.B.Y(), 1e-6)
	assert.InDelta(t, 0.05, lines.Positions[4], 1e-6)
}

func TestLineMesh_FanOutCap(t *testing.T) {
	const n = 40
	positions := make([]mgl32.Vec3, n)
	for i := range positions {
		positions[i] = mgl32.Vec3{float32(i) * 0.001, 0, 0}
	}
	field := NewParticleFieldFrom(positions, still(n))
	lines := NewLineMesh(n, DefaultLineConfig())

	count := lines.Update(field, 0)

	// 20 each for i < 20, then every remaining pair
	assert.Equal(t, 20*20+190, count)
	for i := 0; i < n; i++ {
		assert.LessOrEqual(t, lines.SegmentsFrom(i), 20, "particle %d exceeds fan-out cap", i)
	}

	// Lowest-index neighbours win
	for k := 0; k < 20; k++ {
		seg := lines.Segment(k)
		assert.Equal(t, 0, seg.From)
		assert.Equal(t, k+1, seg.To)
	}
}

func TestLineMesh_StaleSlotsZeroed(t *testing.T) {
	const n = 30
	clustered := make([]mgl32.Vec3, n)
	spread := make([]mgl32.Vec3, n)
	for i := 0; i < n; i++ {
		clustered[i] = mgl32.Vec3{float32(i) * 0.001, 0, 0}
		spread[i] = mgl32.Vec3{float32(i), 0, 0}
	}
	lines := NewLineMesh(n, DefaultLineConfig())

	first := lines.Update(NewParticleFieldFrom(clustered, still(n)), 0)
	require.Greater(t, first, 0)

	// Two neighbours survive the move, everything else must be cleared
	spread[1] = mgl32.Vec3{0.05, 0, 0}
	spread[3] = mgl32.Vec3{2.05, 0, 0}
	second := lines.Update(NewParticleFieldFrom(spread, still(n)), 0)
	require.Equal(t, 2, second)

	for k := second * 6; k < len(lines.Positions); k++ {
		require.Zero(t, lines.Positions[k], "position slot %d is stale", k)
		require.Zero(t, lines.Colors[k], "color slot %d is stale", k)
	}

	// And shrinking to zero clears the rest
	assert.Equal(t, 0, lines.Update(NewParticleFieldFrom(spread[4:], still(n-4)), 0))
	for k := range lines.Positions {
		require.Zero(t, lines.Positions[k])
	}
}

func TestMaxSegments(t *testing.T) {
	assert.Equal(t, 0, MaxSegments(1, 20))
	assert.Equal(t, 45, MaxSegments(10, 20))
	assert.Equal(t, 4000, MaxSegments(200, 20))
	assert.Equal(t, 19900, MaxSegments(200, 0))
}
