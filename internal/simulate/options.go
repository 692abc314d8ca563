package simulate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/fem"
	"github.com/san-kum/spatialsim/internal/pixel"
)

// Options controls one Simulate call.
type Options struct {
	// Durations and Intervals are paired: each duration is simulated with
	// a snapshot every interval.
	Durations []float64
	Intervals []float64

	// Timeout bounds the wall-clock time of the call; zero is unbounded.
	Timeout time.Duration
	// ReturnPartial turns a timeout into a successful, shorter result.
	ReturnPartial bool
	// Continue resumes from the end of the previous call.
	Continue bool
	// Threads bounds intra-step parallelism; zero uses every CPU.
	Threads int
	// ReturnResults false still records history but returns nothing.
	ReturnResults bool

	Backend Backend
	Pixel   pixel.Options
	FEM     fem.Options
}

// DefaultOptions returns a single-threaded pixel simulation that fails on
// timeout and returns its results.
func DefaultOptions() Options {
	return Options{
		Threads:       1,
		ReturnResults: true,
		Backend:       BackendPixel,
		Pixel:         pixel.DefaultOptions(),
		FEM:           fem.DefaultOptions(),
	}
}

// SetTimes parses durations and intervals with ParseTimes.
func (o *Options) SetTimes(durations, intervals string) error {
	d, i, err := ParseTimes(durations, intervals)
	if err != nil {
		return err
	}
	o.Durations, o.Intervals = d, i
	return nil
}

func (o *Options) validate() error {
	if len(o.Durations) == 0 {
		return dynamo.InvalidArgument("no simulation durations given")
	}
	if len(o.Durations) != len(o.Intervals) {
		return dynamo.InvalidArgument("%d durations but %d intervals", len(o.Durations), len(o.Intervals))
	}
	for k := range o.Durations {
		d, iv := o.Durations[k], o.Intervals[k]
		if !(d > 0) || math.IsInf(d, 0) {
			return dynamo.InvalidArgument("duration %d must be positive, got %g", k, d)
		}
		if !(iv > 0) || math.IsInf(iv, 0) {
			return dynamo.InvalidArgument("interval %d must be positive, got %g", k, iv)
		}
		if snapshots(d, iv) < 1 {
			return dynamo.InvalidArgument("interval %g is longer than duration %g", iv, d)
		}
	}
	if o.Threads < 0 {
		return dynamo.InvalidArgument("thread count must be at least 1, got %d", o.Threads)
	}
	if o.Timeout < 0 {
		return dynamo.InvalidArgument("timeout must not be negative, got %s", o.Timeout)
	}
	if _, ok := backends[o.Backend]; !ok {
		return dynamo.InvalidArgument("unknown backend %q", o.Backend)
	}
	return nil
}

// snapshots is the number of intervals that fit in a duration.
func snapshots(duration, interval float64) int {
	return int(math.Round(duration / interval))
}

// ParseTimes parses ";"-separated durations and intervals. A single
// interval is repeated for every duration.
func ParseTimes(durations, intervals string) ([]float64, []float64, error) {
	d, err := parseList("duration", durations)
	if err != nil {
		return nil, nil, err
	}
	iv, err := parseList("interval", intervals)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) == 1 && len(d) > 1 {
		for len(iv) < len(d) {
			iv = append(iv, iv[0])
		}
	}
	if len(d) != len(iv) {
		return nil, nil, dynamo.InvalidArgument("%d durations but %d intervals", len(d), len(iv))
	}
	return d, iv, nil
}

func parseList(what, s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, dynamo.InvalidArgument("invalid %s %q", what, part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, dynamo.InvalidArgument("no %s given", what)
	}
	return out, nil
}
