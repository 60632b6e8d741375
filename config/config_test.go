package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Particles.Count)
	assert.Equal(t, 0.05, cfg.Particles.Inset)
	assert.Equal(t, 20, cfg.Lines.MaxPerParticle)
	assert.Equal(t, 0.1, cfg.Lines.FadeStart)
	assert.Equal(t, 0.3, cfg.Lines.FadeEnd)
	assert.Equal(t, 0.5, cfg.Lines.MaxAlpha)
	assert.Equal(t, "icosphere", cfg.Surface.Kind)
	assert.False(t, cfg.Clock.StartPaused)
	assert.Equal(t, [4]float64{0.02, 0.02, 0.03, 1.0}, cfg.Render.ClearColor)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, "particles:\n  count: 500\nsurface:\n  kind: torus\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Particles.Count)
	assert.Equal(t, "torus", cfg.Surface.Kind)
	assert.Equal(t, 0.05, cfg.Particles.Inset, "untouched keys keep their defaults")
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "particles: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero particles":   func(c *Config) { c.Particles.Count = 0 },
		"inverted fade":    func(c *Config) { c.Lines.FadeEnd = c.Lines.FadeStart },
		"alpha above one":  func(c *Config) { c.Lines.MaxAlpha = 1.5 },
		"negative cap":     func(c *Config) { c.Lines.MaxPerParticle = -1 },
		"unknown surface":  func(c *Config) { c.Surface.Kind = "teapot" },
		"negative max dt":  func(c *Config) { c.Clock.MaxDt = -1 },
		"empty window":     func(c *Config) { c.Window.Width = 0 },
		"no stats window":  func(c *Config) { c.Telemetry.Window = 0 },
		"negative inset":   func(c *Config) { c.Particles.Inset = -0.1 },
		"zero matcap size": func(c *Config) { c.Render.MatcapSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Particles.Count = 321
	cfg.Clock.StartPaused = true

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
