package core

import "github.com/go-gl/mathgl/mgl32"

// LineConfig controls proximity line generation.
type LineConfig struct {
	MaxPerParticle int     // segments emitted per lower-index particle before its scan stops
	FadeStart      float32 // below this distance lines are at full alpha
	FadeEnd        float32 // at or beyond this distance lines vanish
	MaxAlpha       float32
}

func DefaultLineConfig() LineConfig {
	return LineConfig{
		MaxPerParticle: 20,
		FadeStart:      0.1,
		FadeEnd:        0.3,
		MaxAlpha:       0.5,
	}
}

// Segment is one line between two particles, endpoint colors already scaled by alpha.
type Segment struct {
	A, B           mgl32.Vec3
	ColorA, ColorB mgl32.Vec3
	Alpha          float32
	From, To       int
}

// LineMesh regenerates the proximity segments every frame.
// Positions and Colors hold two vertices (six floats) per segment slot.
type LineMesh struct {
	Config    LineConfig
	Positions []float32
	Colors    []float32

	segments  []Segment
	count     int
	prevCount int
}

// NewLineMesh sizes the buffers for the most segments a field of n particles can emit.
func NewLineMesh(n int, cfg LineConfig) *LineMesh {
	capacity := MaxSegments(n, cfg.MaxPerParticle)
	return &LineMesh{
		Config:    cfg,
		Positions: make([]float32, capacity*6),
		Colors:    make([]float32, capacity*6),
		segments:  make([]Segment, capacity),
	}
}

// MaxSegments is the segment upper bound for n particles under a per-particle cap.
func MaxSegments(n, perParticle int) int {
	pairs := n * (n - 1) / 2
	if perParticle > 0 && n*perParticle < pairs {
		return n * perParticle
	}
	return pairs
}

func (l *LineMesh) Capacity() int {
	return len(l.segments)
}

// Count is the number of segments written by the last Update.
func (l *LineMesh) Count() int {
	return l.count
}

func (l *LineMesh) Segment(k int) Segment {
	return l.segments[k]
}

// SegmentsFrom counts emitted segments whose lower index is i.
func (l *LineMesh) SegmentsFrom(i int) int {
	n := 0
	for k := 0; k < l.count; k++ {
		if l.segments[k].From == i {
			n++
		}
	}
	return n
}

// Alpha is the fade for two endpoints distance apart.
func (l *LineMesh) Alpha(distance float32) float32 {
	return l.Config.MaxAlpha * (1 - Smoothstep(l.Config.FadeStart, l.Config.FadeEnd, distance))
}

// Update rebuilds segments from the field, predicting the farther endpoint one dt ahead.
// Pairs are scanned in ascending order so the per-particle cap favours lower indices.
func (l *LineMesh) Update(field *ParticleField, dt float32) int {
	if dt < 0 {
		dt = 0
	}
	n := field.Count()
	count := 0

	for i := 0; i < n && count < len(l.segments); i++ {
		pi := field.Position(i)
		ci := field.Color(i)
		emitted := 0

		for j := i + 1; j < n; j++ {
			if l.Config.MaxPerParticle > 0 && emitted >= l.Config.MaxPerParticle {
				break
			}
			if count >= len(l.segments) {
				break
			}

			jNext := field.Position(j).Add(field.Velocity(j).Mul(dt))
			alpha := l.Alpha(jNext.Sub(pi).Len())
			if alpha <= 0 {
				continue
			}

			seg := Segment{
				A:      pi,
				B:      jNext,
				ColorA: ci.Mul(alpha),
				ColorB: field.Color(j).Mul(alpha),
				Alpha:  alpha,
				From:   i,
				To:     j,
			}
			l.segments[count] = seg
			l.write(count, seg)
			count++
			emitted++
		}
	}

	// Everything past the new count was either zero already or written last frame
	for k := count; k < l.prevCount; k++ {
		l.segments[k] = Segment{}
		clear(l.Positions[k*6 : k*6+6])
		clear(l.Colors[k*6 : k*6+6])
	}

	l.count = count
	l.prevCount = count
	return count
}

func (l *LineMesh) write(k int, s Segment) {
	p := l.Positions[k*6 : k*6+6]
	p[0], p[1], p[2] = s.A.X(), s.A.Y(), s.A.Z()
	p[3], p[4], p[5] = s.B.X(), s.B.Y(), s.B.Z()

	c := l.Colors[k*6 : k*6+6]
	c[0], c[1], c[2] = s.ColorA.X(), s.ColorA.Y(), s.ColorA.Z()
	c[3], c[4], c[5] = s.ColorB.X(), s.ColorB.Y(), s.ColorB.Z()
}
