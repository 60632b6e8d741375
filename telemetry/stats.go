// Package telemetry collects per-frame statistics and writes them out as CSV.
package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FrameSample is one simulated frame.
type FrameSample struct {
	Frame       int
	Dt          float64 // Scaled simulation step in seconds
	StepSeconds float64 // Wall time spent in the step
	Segments    int
	Visible     int
	MeanSpeed   float64
}

// WindowStats summarizes the frames currently held in a Window.
type WindowStats struct {
	WindowEnd    int     `csv:"window_end"`
	Frames       int     `csv:"frames"`
	SimTimeSec   float64 `csv:"sim_time"`
	StepMeanMs   float64 `csv:"step_mean_ms"`
	StepStdMs    float64 `csv:"step_std_ms"`
	StepP90Ms    float64 `csv:"step_p90_ms"`
	SegmentsMean float64 `csv:"segments_mean"`
	SegmentsMax  int     `csv:"segments_max"`
	VisibleMin   int     `csv:"visible_min"`
	SpeedMean    float64 `csv:"speed_mean"`
}

// Window is a fixed-size ring of the most recent frame samples.
type Window struct {
	samples []FrameSample
	next    int
	full    bool
	simTime float64 // Total scaled time ever added, not just the held samples

	// Scratch reused by Stats
	stepMs   []float64
	segments []float64
	speeds   []float64
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{
		samples:  make([]FrameSample, size),
		stepMs:   make([]float64, 0, size),
		segments: make([]float64, 0, size),
		speeds:   make([]float64, 0, size),
	}
}

// Add records a sample, evicting the oldest once the window is full.
func (w *Window) Add(s FrameSample) {
	w.samples[w.next] = s
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
	w.simTime += s.Dt
}

func (w *Window) Len() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// Stats computes the summary over the held samples. Zero value when empty.
func (w *Window) Stats() WindowStats {
	n := w.Len()
	if n == 0 {
		return WindowStats{}
	}

	w.stepMs = w.stepMs[:0]
	w.segments = w.segments[:0]
	w.speeds = w.speeds[:0]

	out := WindowStats{Frames: n, SimTimeSec: w.simTime, VisibleMin: -1}
	for i := 0; i < n; i++ {
		s := w.samples[i]
		w.stepMs = append(w.stepMs, s.StepSeconds*1000)
		w.segments = append(w.segments, float64(s.Segments))
		w.speeds = append(w.speeds, s.MeanSpeed)

		out.WindowEnd = max(out.WindowEnd, s.Frame)
		out.SegmentsMax = max(out.SegmentsMax, s.Segments)
		if out.VisibleMin < 0 || s.Visible < out.VisibleMin {
			out.VisibleMin = s.Visible
		}
	}

	out.StepMeanMs, out.StepStdMs = stat.MeanStdDev(w.stepMs, nil)
	if n < 2 {
		out.StepStdMs = 0
	}
	sort.Float64s(w.stepMs)
	out.StepP90Ms = stat.Quantile(0.9, stat.Empirical, w.stepMs, nil)
	out.SegmentsMean = stat.Mean(w.segments, nil)
	out.SpeedMean = stat.Mean(w.speeds, nil)
	return out
}
