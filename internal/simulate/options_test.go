package simulate

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

func TestParseTimes(t *testing.T) {
	tests := []struct {
		name      string
		durations string
		intervals string
		wantD     []float64
		wantI     []float64
		wantErr   bool
	}{
		{"single", "0.002", "0.001", []float64{0.002}, []float64{0.001}, false},
		{"pairs", "0.002;0.001", "0.001; 0.001", []float64{0.002, 0.001}, []float64{0.001, 0.001}, false},
		{"broadcast interval", "1;2;3", "0.5", []float64{1, 2, 3}, []float64{0.5, 0.5, 0.5}, false},
		{"trailing separator", "1;", "0.1;", []float64{1}, []float64{0.1}, false},
		{"length mismatch", "1;2", "0.1;0.2;0.3", nil, nil, true},
		{"not a number", "1;two", "0.1", nil, nil, true},
		{"empty", "", "0.1", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, i, err := ParseTimes(tt.durations, tt.intervals)
			if tt.wantErr {
				if !errors.Is(err, dynamo.ErrInvalidArgument) {
					t.Fatalf("expected invalid argument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimes: %v", err)
			}
			if !slices.Equal(d, tt.wantD) || !slices.Equal(i, tt.wantI) {
				t.Errorf("got %v %v, want %v %v", d, i, tt.wantD, tt.wantI)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := func() Options {
		o := DefaultOptions()
		o.Durations, o.Intervals = []float64{1}, []float64{0.1}
		return o
	}
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no durations", func(o *Options) { o.Durations, o.Intervals = nil, nil }},
		{"mismatched", func(o *Options) { o.Intervals = []float64{0.1, 0.2} }},
		{"zero duration", func(o *Options) { o.Durations[0] = 0 }},
		{"negative interval", func(o *Options) { o.Intervals[0] = -0.1 }},
		{"interval too long", func(o *Options) { o.Intervals[0] = 5 }},
		{"negative threads", func(o *Options) { o.Threads = -1 }},
		{"negative timeout", func(o *Options) { o.Timeout = -time.Second }},
		{"unknown backend", func(o *Options) { o.Backend = "spectral" }},
	}
	base := valid()
	if err := base.validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.modify(&o)
			if err := o.validate(); !errors.Is(err, dynamo.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestSnapshotsRoundsToNearest(t *testing.T) {
	tests := []struct {
		duration, interval float64
		want               int
	}{
		{0.002, 0.001, 2},
		{0.3, 0.1, 3},
		{1, 0.3, 3},
	}
	for _, tt := range tests {
		if got := snapshots(tt.duration, tt.interval); got != tt.want {
			t.Errorf("snapshots(%v, %v) = %d, want %d", tt.duration, tt.interval, got, tt.want)
		}
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := ParseBackend("fem"); err != nil || b != BackendFEM {
		t.Errorf("ParseBackend(fem) = %v, %v", b, err)
	}
	if _, err := ParseBackend("gpu"); !errors.Is(err, dynamo.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
	if got := ListBackends(); !slices.Equal(got, []string{"fem", "pixel"}) {
		t.Errorf("ListBackends() = %v", got)
	}
}
