package metrics

import "github.com/san-kum/spatialsim/internal/field"

// NonNegative is the fraction of snapshots in which no species dropped
// below -tolerance.
type NonNegative struct {
	tolerance  float64
	violations int
	samples    int
}

func NewNonNegative(tolerance float64) *NonNegative {
	return &NonNegative{tolerance: tolerance}
}

func (n *NonNegative) Name() string { return "nonnegative" }

func (n *NonNegative) Observe(t float64, stats map[string]field.Stats) {
	n.samples++
	for _, st := range stats {
		if st.Min < -n.tolerance {
			n.violations++
			break
		}
	}
}

func (n *NonNegative) Value() float64 {
	if n.samples == 0 {
		return 1
	}
	return 1 - float64(n.violations)/float64(n.samples)
}

func (n *NonNegative) Reset() {
	n.violations = 0
	n.samples = 0
}

// Spread is the average max-min range of a species over the snapshots.
type Spread struct {
	species string
	sum     float64
	samples int
}

func NewSpread(species string) *Spread {
	return &Spread{species: species}
}

func (s *Spread) Name() string { return s.species + "_spread" }

func (s *Spread) Observe(t float64, stats map[string]field.Stats) {
	st, ok := stats[s.species]
	if !ok {
		return
	}
	s.sum += st.Max - st.Min
	s.samples++
}

func (s *Spread) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *Spread) Reset() {
	s.sum = 0
	s.samples = 0
}
