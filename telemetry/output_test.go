package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gekko3d/meshfield/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// Every method is a no-op on nil
	assert.NoError(t, om.WriteStats(WindowStats{}))
	assert.NoError(t, om.WriteConfig(config.Default()))
	assert.NoError(t, om.Close())
	assert.Equal(t, "", om.Dir())
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteStats(WindowStats{WindowEnd: 120, Frames: 120, SegmentsMax: 7}))
	require.NoError(t, om.WriteStats(WindowStats{WindowEnd: 240, Frames: 120, SegmentsMax: 9}))
	require.NoError(t, om.WriteConfig(config.Default()))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "frames.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "window_end,frames,"))
	assert.True(t, strings.HasPrefix(lines[1], "120,120,"))
	assert.True(t, strings.HasPrefix(lines[2], "240,120,"))

	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)
}
