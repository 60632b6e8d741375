package meshfield

import (
	"math/rand"
	"time"

	"github.com/gekko3d/meshfield/config"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/telemetry"
)

// SimulationConfig is the subset of the configuration the particle step needs.
type SimulationConfig struct {
	Count       int
	Inset       float32
	Speed       float32
	Lines       core.LineConfig
	TimeScale   float32
	MaxDt       float32
	StartPaused bool
	StatsWindow int
}

func SimulationConfigFrom(cfg *config.Config) SimulationConfig {
	return SimulationConfig{
		Count: cfg.Particles.Count,
		Inset: float32(cfg.Particles.Inset),
		Speed: float32(cfg.Particles.Speed),
		Lines: core.LineConfig{
			MaxPerParticle: cfg.Lines.MaxPerParticle,
			FadeStart:      float32(cfg.Lines.FadeStart),
			FadeEnd:        float32(cfg.Lines.FadeEnd),
			MaxAlpha:       float32(cfg.Lines.MaxAlpha),
		},
		TimeScale:   float32(cfg.Clock.TimeScale),
		MaxDt:       float32(cfg.Clock.MaxDt),
		StartPaused: cfg.Clock.StartPaused,
		StatsWindow: cfg.Telemetry.Window,
	}
}

// Simulation owns the clock, the particle field and its line mesh.
// The surface is shared and only read.
type Simulation struct {
	Clock *core.SimulationClock
	Field *core.ParticleField
	Lines *core.LineMesh
	Stats *telemetry.Window

	surface core.SurfaceQuery
	frame   int
	lastDt  float32
}

// NewSimulation seeds the field on sampler and collides it against query.
func NewSimulation(cfg SimulationConfig, sampler core.Sampler, query core.SurfaceQuery, rng *rand.Rand) *Simulation {
	timeScale := cfg.TimeScale
	if cfg.Speed > 0 {
		// Velocity stays a unit direction; speed folds into the step size
		timeScale *= cfg.Speed
	}
	return &Simulation{
		Clock:   core.NewSimulationClock(timeScale, cfg.MaxDt, cfg.StartPaused),
		Field:   core.NewParticleField(cfg.Count, cfg.Inset, sampler, rng),
		Lines:   core.NewLineMesh(cfg.Count, cfg.Lines),
		Stats:   telemetry.NewWindow(cfg.StatsWindow),
		surface: query,
	}
}

// Frame ticks the clock to now (seconds) and steps unless paused.
// Reports whether the buffers changed.
func (s *Simulation) Frame(now float64) bool {
	dt := s.Clock.Tick(now)
	if s.Clock.Paused() {
		return false
	}
	s.Step(dt)
	return true
}

// Step advances one frame by dt regardless of the clock state.
func (s *Simulation) Step(dt float32) {
	start := time.Now()
	s.Field.Update(dt, s.surface)
	segments := s.Lines.Update(s.Field, dt)
	elapsed := time.Since(start)

	s.frame++
	s.lastDt = dt
	s.Stats.Add(telemetry.FrameSample{
		Frame:       s.frame,
		Dt:          float64(dt),
		StepSeconds: elapsed.Seconds(),
		Segments:    segments,
		Visible:     s.Field.VisibleCount(),
		MeanSpeed:   s.meanSpeed(),
	})
}

// FrameCount is the number of steps taken so far.
func (s *Simulation) FrameCount() int {
	return s.frame
}

func (s *Simulation) LastDt() float32 {
	return s.lastDt
}

func (s *Simulation) meanSpeed() float64 {
	n := s.Field.Count()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(s.Field.Velocity(i).Len())
	}
	return sum / float64(n)
}
