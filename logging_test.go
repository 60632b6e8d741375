package meshfield

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLogger(&out, &errOut, "meshfield", false)

	l.Debugf("hidden %d", 1)
	l.Infof("ready %d", 2)
	l.Warnf("slow")
	l.Errorf("broken")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[meshfield] INFO: ready 2")
	assert.Contains(t, errOut.String(), "[meshfield] WARN: slow")
	assert.Contains(t, errOut.String(), "[meshfield] ERROR: broken")
}

func TestLoggerNamedSharesDebug(t *testing.T) {
	var out bytes.Buffer
	root := NewLogger(&out, &out, "meshfield", false)
	app := root.Named("app")

	root.SetDebug(true)
	assert.True(t, app.DebugEnabled())
	app.Debugf("frame %d", 7)
	assert.Contains(t, out.String(), "[meshfield/app] DEBUG: frame 7")

	bare := NewLogger(&out, &out, "", true).Named("sim")
	bare.Infof("x")
	assert.Contains(t, out.String(), "[sim] INFO: x")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("dropped")

	var out bytes.Buffer
	named := NewLogger(&out, &out, "", false)
	assert.Same(t, named, OrNop(named))
}
