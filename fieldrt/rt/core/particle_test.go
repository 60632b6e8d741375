package core

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSphereSurface(t *testing.T) *ConstraintSurface {
	t.Helper()
	surface, err := NewConstraintSurface(Icosphere(1, 4))
	require.NoError(t, err)
	return surface
}

func TestParticleField_InitialState(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleField(200, 0.05, surface, rand.New(rand.NewSource(1)))

	require.Equal(t, 200, field.Count())
	require.Len(t, field.Positions, 600)
	require.Len(t, field.Colors, 600)

	for i := 0; i < field.Count(); i++ {
		assert.InDelta(t, 1.0, field.Velocity(i).Len(), 1e-5, "velocity %d should be a unit direction", i)
		// Seeded just inside the unit sphere
		r := field.Position(i).Len()
		assert.Less(t, r, float32(0.96), "particle %d should start inside the surface", i)
		assert.Greater(t, r, float32(0.9), "particle %d should start near the surface", i)
	}
}

func TestParticleField_ClosedSphereScenario(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleField(200, 0.05, surface, rand.New(rand.NewSource(42)))

	initialSpeed := make([]float32, field.Count())
	initialVel := make([]mgl32.Vec3, field.Count())
	for i := range initialSpeed {
		initialSpeed[i] = field.Velocity(i).Len()
		initialVel[i] = field.Velocity(i)
	}

	escapes := 0
	for frame := 0; frame < 1000; frame++ {
		field.Update(0.01, surface)
		escapes += field.Count() - field.VisibleCount()
	}

	assert.Zero(t, escapes, "no particle should leave a closed convex surface")

	bounced := 0
	for i := 0; i < field.Count(); i++ {
		assert.InDelta(t, initialSpeed[i], field.Velocity(i).Len(), 1e-4, "speed of particle %d drifted", i)
		assert.Less(t, field.Position(i).Len(), float32(1.0), "particle %d is outside the sphere", i)
		if field.Velocity(i).Sub(initialVel[i]).Len() > 1e-3 {
			bounced++
		}
		assert.NotEqual(t, mgl32.Vec3{}, field.Color(i), "visible particle %d should be colored", i)
	}
	assert.Greater(t, bounced, 150, "over 10 time units most particles should have bounced")
}

func TestParticleField_ColorFollowsVelocity(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleField(50, 0.05, surface, rand.New(rand.NewSource(3)))

	before := make([]mgl32.Vec3, field.Count())
	for i := range before {
		before[i] = field.Velocity(i)
	}
	field.Update(0.01, surface)

	for i := 0; i < field.Count(); i++ {
		require.True(t, field.Visible(i))
		want := mgl32.Vec3{
			Smoothstep(-1, 1, before[i].X()),
			Smoothstep(-1, 1, before[i].Y()),
			Smoothstep(-1, 1, before[i].Z()),
		}
		got := field.Color(i)
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want[c], got[c], 1e-6)
		}
	}
}

func TestParticleField_EscapedParticleIsBlack(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleFieldFrom(
		[]mgl32.Vec3{{3, 0, 0}, {3, 0, 0}},
		[]mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}},
	)

	field.Update(0.01, surface)

	// Heading away: no hit, invisible, velocity untouched
	assert.False(t, field.Visible(0))
	assert.Equal(t, mgl32.Vec3{}, field.Color(0))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, field.Velocity(0))

	// Heading back in: hit far away, visible, no reflection yet
	assert.True(t, field.Visible(1))
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, field.Velocity(1))
	c := field.Color(1)
	assert.InDelta(t, 0.0, c.X(), 1e-6)
	assert.InDelta(t, 0.5, c.Y(), 1e-6)
	assert.InDelta(t, 0.5, c.Z(), 1e-6)
}

func TestParticleField_ReflectsNearSurface(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleFieldFrom([]mgl32.Vec3{{0, 0, 0.985}}, []mgl32.Vec3{{0, 0, 1}})

	field.Update(0.01, surface)

	v := field.Velocity(0)
	assert.Less(t, v.Z(), float32(-0.9), "velocity should point back inward, got %v", v)
	assert.InDelta(t, 1.0, v.Len(), 1e-5)

	// Far from the wall nothing changes
	far := NewParticleFieldFrom([]mgl32.Vec3{{0, 0, 0}}, []mgl32.Vec3{{0, 0, 1}})
	far.Update(0.01, surface)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, far.Velocity(0))
}

func TestParticleField_BufferMirrorsPositions(t *testing.T) {
	surface := newSphereSurface(t)
	start := []mgl32.Vec3{{0, 0, 0}, {0.2, -0.1, 0.3}}
	vel := []mgl32.Vec3{{1, 0, 0}, mgl32.Vec3{1, 1, 1}.Normalize()}
	field := NewParticleFieldFrom(start, vel)

	field.Update(0.01, surface)

	for i := range start {
		want := start[i].Add(vel[i].Mul(0.01))
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want[c], field.Positions[i*3+c], 1e-6)
		}
		assert.Equal(t, field.Position(i), mgl32.Vec3{field.Positions[i*3], field.Positions[i*3+1], field.Positions[i*3+2]})
	}
}

func TestParticleField_NegativeDtDoesNotMove(t *testing.T) {
	surface := newSphereSurface(t)
	field := NewParticleField(20, 0.05, surface, rand.New(rand.NewSource(9)))
	before := append([]float32(nil), field.Positions...)

	field.Update(-0.5, surface)

	assert.Equal(t, before, field.Positions)
}

func TestReflectPreservesLength(t *testing.T) {
	v := mgl32.Vec3{0.3, -2, 1.5}
	n := mgl32.Vec3{1, 2, -0.5}.Normalize()
	r := Reflect(v, n)

	assert.InDelta(t, v.Len(), r.Len(), 1e-5)
	assert.InDelta(t, -v.Dot(n), r.Dot(n), 1e-5)
}

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, float32(0), Smoothstep(0.1, 0.3, 0.05))
	assert.Equal(t, float32(1), Smoothstep(0.1, 0.3, 0.4))
	assert.InDelta(t, 0.5, Smoothstep(0.1, 0.3, 0.2), 1e-6)
	assert.InDelta(t, 0.5, Smoothstep(-1, 1, 0), 1e-6)
}
