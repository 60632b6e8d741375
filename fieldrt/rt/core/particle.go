package core

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// ParticleField owns a fixed, index-stable set of particles bouncing inside a surface.
// Positions and Colors are the flat buffers uploaded to the GPU: slot 3i..3i+2 is particle i.
type ParticleField struct {
	Positions []float32
	Colors    []float32

	velocities []mgl32.Vec3
	visible    []bool
}

// NewParticleField seeds count particles on the surface, pushed inset units inward,
// heading mostly outward with uniform per-axis jitter in [-1,1].
func NewParticleField(count int, inset float32, surface Sampler, rng *rand.Rand) *ParticleField {
	positions := make([]mgl32.Vec3, count)
	velocities := make([]mgl32.Vec3, count)

	for i := 0; i < count; i++ {
		s := surface.Sample(rng)
		positions[i] = s.Point.Sub(s.Normal.Mul(inset))

		jitter := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		dir := s.Normal.Add(jitter)
		if dir.Len() < 1e-6 {
			dir = s.Normal
		}
		velocities[i] = dir.Normalize()
	}

	return NewParticleFieldFrom(positions, velocities)
}

// NewParticleFieldFrom builds a field from explicit state. Velocities are used as given.
func NewParticleFieldFrom(positions, velocities []mgl32.Vec3) *ParticleField {
	n := len(positions)
	f := &ParticleField{
		Positions:  make([]float32, n*3),
		Colors:     make([]float32, n*3),
		velocities: make([]mgl32.Vec3, n),
		visible:    make([]bool, n),
	}
	for i := 0; i < n; i++ {
		f.setPosition(i, positions[i])
		f.velocities[i] = velocities[i]
		f.setColor(i, velocityColor(velocities[i]))
		f.visible[i] = true
	}
	return f
}

func (f *ParticleField) Count() int {
	return len(f.velocities)
}

func (f *ParticleField) Position(i int) mgl32.Vec3 {
	return mgl32.Vec3{f.Positions[i*3], f.Positions[i*3+1], f.Positions[i*3+2]}
}

func (f *ParticleField) Velocity(i int) mgl32.Vec3 {
	return f.velocities[i]
}

func (f *ParticleField) Color(i int) mgl32.Vec3 {
	return mgl32.Vec3{f.Colors[i*3], f.Colors[i*3+1], f.Colors[i*3+2]}
}

// Visible reports whether particle i hit the surface on the last update.
func (f *ParticleField) Visible(i int) bool {
	return f.visible[i]
}

func (f *ParticleField) VisibleCount() int {
	n := 0
	for _, v := range f.visible {
		if v {
			n++
		}
	}
	return n
}

// Update advances every particle by dt and bounces it off the surface.
// A particle whose ray misses the surface has escaped: it turns black and keeps its velocity.
func (f *ParticleField) Update(dt float32, surface SurfaceQuery) {
	if dt < 0 {
		dt = 0
	}
	reach := 2 * dt

	for i := range f.velocities {
		v := f.velocities[i]
		p := f.Position(i).Add(v.Mul(dt))
		f.setPosition(i, p)
		f.setColor(i, velocityColor(v))

		hit, ok := surface.NearestHit(p, v)
		if !ok {
			f.setColor(i, mgl32.Vec3{})
			f.visible[i] = false
			continue
		}
		f.visible[i] = true

		if hit.Distance < reach {
			f.velocities[i] = Reflect(v, hit.Normal)
		}
	}
}

func (f *ParticleField) setPosition(i int, p mgl32.Vec3) {
	f.Positions[i*3] = p.X()
	f.Positions[i*3+1] = p.Y()
	f.Positions[i*3+2] = p.Z()
}

func (f *ParticleField) setColor(i int, c mgl32.Vec3) {
	f.Colors[i*3] = c.X()
	f.Colors[i*3+1] = c.Y()
	f.Colors[i*3+2] = c.Z()
}

// velocityColor maps a unit direction to an RGB tint, easing each axis from [-1,1] to [0,1].
func velocityColor(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		Smoothstep(-1, 1, v.X()),
		Smoothstep(-1, 1, v.Y()),
		Smoothstep(-1, 1, v.Z()),
	}
}
