package core

// ClockState gates whether the simulation advances.
type ClockState int

const (
	ClockRunning ClockState = iota
	ClockPaused
)

func (s ClockState) String() string {
	switch s {
	case ClockRunning:
		return "running"
	case ClockPaused:
		return "paused"
	}
	return "unknown"
}

// SimulationClock turns frame-driver timestamps into scaled, clamped deltas,
// and pauses while the window is unfocused.
type SimulationClock struct {
	TimeScale float32
	MaxDt     float32

	state   ClockState
	last    float64
	started bool
}

func NewSimulationClock(timeScale, maxDt float32, startPaused bool) *SimulationClock {
	c := &SimulationClock{TimeScale: timeScale, MaxDt: maxDt}
	if startPaused {
		c.state = ClockPaused
	}
	return c
}

func (c *SimulationClock) State() ClockState {
	return c.state
}

func (c *SimulationClock) Paused() bool {
	return c.state == ClockPaused
}

func (c *SimulationClock) FocusGained() {
	c.state = ClockRunning
}

func (c *SimulationClock) FocusLost() {
	c.state = ClockPaused
}

// Tick records now (seconds) and returns the scaled delta since the previous tick.
// The first tick yields zero. Time keeps advancing while paused so resume never jumps.
func (c *SimulationClock) Tick(now float64) float32 {
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}
	raw := now - c.last
	c.last = now
	return c.Scale(float32(raw))
}

// Scale applies the time scale and clamps to [0, MaxDt].
func (c *SimulationClock) Scale(raw float32) float32 {
	dt := raw * c.TimeScale
	if dt < 0 || dt != dt {
		return 0
	}
	if c.MaxDt > 0 && dt > c.MaxDt {
		return c.MaxDt
	}
	return dt
}
