package metrics

import (
	"math"

	"github.com/san-kum/spatialsim/internal/field"
)

// Mean is the time-sampled average of a species' mean concentration.
type Mean struct {
	species string
	sum     float64
	samples int
}

func NewMean(species string) *Mean {
	return &Mean{species: species}
}

func (m *Mean) Name() string { return m.species + "_mean" }

func (m *Mean) Observe(t float64, stats map[string]field.Stats) {
	st, ok := stats[m.species]
	if !ok {
		return
	}
	m.sum += st.Avg
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// Drift is the largest relative change of a species' mean concentration
// from its first sample. For a closed diffusing species it stays near zero.
type Drift struct {
	species  string
	initial  float64
	maxDrift float64
	samples  int
}

func NewDrift(species string) *Drift {
	return &Drift{species: species}
}

func (d *Drift) Name() string { return d.species + "_drift" }

func (d *Drift) Observe(t float64, stats map[string]field.Stats) {
	st, ok := stats[d.species]
	if !ok {
		return
	}
	if d.samples == 0 {
		d.initial = st.Avg
	}
	d.samples++
	if d.initial != 0 {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(st.Avg-d.initial)/math.Abs(d.initial))
	}
}

func (d *Drift) Value() float64 { return d.maxDrift }

func (d *Drift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
}
