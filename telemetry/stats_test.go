package telemetry

import (
	"math"
	"testing"
)

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(4)
	if got := w.Stats(); got != (WindowStats{}) {
		t.Errorf("empty window stats = %+v, want zero", got)
	}
}

func TestWindowStats(t *testing.T) {
	w := NewWindow(10)
	for i := 1; i <= 10; i++ {
		w.Add(FrameSample{
			Frame:       i,
			Dt:          0.01,
			StepSeconds: float64(i) / 1000,
			Segments:    i * 10,
			Visible:     200 - i,
			MeanSpeed:   1,
		})
	}

	s := w.Stats()
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"frames", float64(s.Frames), 10},
		{"window end", float64(s.WindowEnd), 10},
		{"sim time", s.SimTimeSec, 0.1},
		{"step mean", s.StepMeanMs, 5.5},
		{"step std", s.StepStdMs, 3.0277},
		{"step p90", s.StepP90Ms, 9},
		{"segments mean", s.SegmentsMean, 55},
		{"segments max", float64(s.SegmentsMax), 100},
		{"visible min", float64(s.VisibleMin), 190},
		{"speed mean", s.SpeedMean, 1},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 0.001 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Add(FrameSample{Frame: i, Segments: i})
	}

	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}
	s := w.Stats()
	if s.SegmentsMean != 4 {
		t.Errorf("SegmentsMean = %v, want 4 (frames 3..5)", s.SegmentsMean)
	}
	if s.WindowEnd != 5 {
		t.Errorf("WindowEnd = %d, want 5", s.WindowEnd)
	}
}

func TestWindowSingleSampleHasNoSpread(t *testing.T) {
	w := NewWindow(0)
	w.Add(FrameSample{Frame: 1, StepSeconds: 0.002})

	s := w.Stats()
	if s.StepStdMs != 0 {
		t.Errorf("StepStdMs = %v, want 0", s.StepStdMs)
	}
	if math.Abs(s.StepMeanMs-2) > 1e-9 {
		t.Errorf("StepMeanMs = %v, want 2", s.StepMeanMs)
	}
}
