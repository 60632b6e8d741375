// Package config loads the program configuration from YAML over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of the particle field and its renderer.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Particles ParticlesConfig `yaml:"particles"`
	Lines     LinesConfig     `yaml:"lines"`
	Clock     ClockConfig     `yaml:"clock"`
	Surface   SurfaceConfig   `yaml:"surface"`
	Render    RenderConfig    `yaml:"render"`
	Camera    CameraConfig    `yaml:"camera"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

// ParticlesConfig controls how the field is seeded.
type ParticlesConfig struct {
	Count int     `yaml:"count"`
	Inset float64 `yaml:"inset"` // Distance pushed inward along the surface normal
	Speed float64 `yaml:"speed"` // Multiplies the unit seed direction
}

// LinesConfig controls proximity segment generation.
type LinesConfig struct {
	MaxPerParticle int     `yaml:"max_per_particle"`
	FadeStart      float64 `yaml:"fade_start"`
	FadeEnd        float64 `yaml:"fade_end"`
	MaxAlpha       float64 `yaml:"max_alpha"`
}

type ClockConfig struct {
	TimeScale   float64 `yaml:"time_scale"`
	MaxDt       float64 `yaml:"max_dt"` // 0 disables clamping
	StartPaused bool    `yaml:"start_paused"`
}

// SurfaceConfig selects the procedural constraint mesh.
type SurfaceConfig struct {
	Kind         string  `yaml:"kind"`
	Radius       float64 `yaml:"radius"`
	Subdivisions int     `yaml:"subdivisions"`
	MajorRadius  float64 `yaml:"major_radius"`
	MinorRadius  float64 `yaml:"minor_radius"`
	Rings        int     `yaml:"rings"`
	Sides        int     `yaml:"sides"`
}

type RenderConfig struct {
	ClearColor  [4]float64 `yaml:"clear_color"`
	MatcapPath  string     `yaml:"matcap_path"`
	MatcapSize  int        `yaml:"matcap_size"`
	MatcapGain  float64    `yaml:"matcap_intensity"`
	FieldGain   float64    `yaml:"field_intensity"` // Weight of the particle texture on the surface
	FontPath    string     `yaml:"font_path"`
	FontSize    float64    `yaml:"font_size"`
	ShowOverlay bool       `yaml:"show_overlay"`
}

type CameraConfig struct {
	Distance   float64 `yaml:"distance"`
	Pitch      float64 `yaml:"pitch"`
	FovDegrees float64 `yaml:"fov_degrees"`
	OrbitSpeed float64 `yaml:"orbit_speed"`
}

type TelemetryConfig struct {
	Window      int     `yaml:"window"`       // Frames in the rolling stats window
	LogInterval float64 `yaml:"log_interval"` // Seconds between summary log lines, 0 disables
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load reads a YAML file over the embedded defaults and validates the result.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Particles.Count <= 0:
		return fmt.Errorf("particles.count must be positive, got %d", c.Particles.Count)
	case c.Particles.Inset < 0:
		return fmt.Errorf("particles.inset must not be negative, got %g", c.Particles.Inset)
	case c.Particles.Speed <= 0:
		return fmt.Errorf("particles.speed must be positive, got %g", c.Particles.Speed)
	case c.Lines.MaxPerParticle < 0:
		return fmt.Errorf("lines.max_per_particle must not be negative, got %d", c.Lines.MaxPerParticle)
	case c.Lines.FadeEnd <= c.Lines.FadeStart:
		return fmt.Errorf("lines.fade_end (%g) must exceed lines.fade_start (%g)", c.Lines.FadeEnd, c.Lines.FadeStart)
	case c.Lines.MaxAlpha < 0 || c.Lines.MaxAlpha > 1:
		return fmt.Errorf("lines.max_alpha must be in [0,1], got %g", c.Lines.MaxAlpha)
	case c.Clock.TimeScale < 0:
		return fmt.Errorf("clock.time_scale must not be negative, got %g", c.Clock.TimeScale)
	case c.Clock.MaxDt < 0:
		return fmt.Errorf("clock.max_dt must not be negative, got %g", c.Clock.MaxDt)
	case c.Surface.Kind != "icosphere" && c.Surface.Kind != "torus":
		return fmt.Errorf("surface.kind %q is not one of icosphere, torus", c.Surface.Kind)
	case c.Render.MatcapSize <= 0:
		return fmt.Errorf("render.matcap_size must be positive, got %d", c.Render.MatcapSize)
	case c.Telemetry.Window <= 0:
		return fmt.Errorf("telemetry.window must be positive, got %d", c.Telemetry.Window)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
