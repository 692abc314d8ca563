package metrics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a simulate call, used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
)

// Solver holds the collectors describing solver activity. A nil *Solver
// records nothing.
type Solver struct {
	Simulations *prometheus.CounterVec
	Steps       *prometheus.CounterVec
	Snapshots   *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewSolver creates the collectors and registers them with reg, which may
// be nil.
func NewSolver(reg prometheus.Registerer) *Solver {
	s := &Solver{
		Simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spatialsim",
			Name:      "simulations_total",
			Help:      "Simulate calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spatialsim",
			Name:      "solver_steps_total",
			Help:      "Accepted solver time steps.",
		}, []string{"backend"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spatialsim",
			Name:      "snapshots_total",
			Help:      "Snapshots recorded.",
		}, []string{"backend"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spatialsim",
			Name:      "simulate_duration_seconds",
			Help:      "Wall-clock time of simulate calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"backend"}),
	}
	if reg != nil {
		reg.MustRegister(s.Simulations, s.Steps, s.Snapshots, s.Duration)
	}
	return s
}

// ObserveRun records one simulate call.
func (s *Solver) ObserveRun(backend, outcome string, steps, snapshots int, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.Simulations.WithLabelValues(backend, outcome).Inc()
	s.Steps.WithLabelValues(backend).Add(float64(steps))
	s.Snapshots.WithLabelValues(backend).Add(float64(snapshots))
	s.Duration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// Sample is one gathered counter, or the observation count of a
// histogram.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

func (s Sample) String() string {
	if s.Labels == "" {
		return fmt.Sprintf("%s %g", s.Name, s.Value)
	}
	return fmt.Sprintf("%s{%s} %g", s.Name, s.Labels, s.Value)
}

// Gather collects every counter and histogram of g, sorted by name and
// labels.
func Gather(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			s := Sample{Name: mf.GetName(), Labels: strings.Join(labels, ",")}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b Sample) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Labels, b.Labels)
	})
	return out, nil
}
