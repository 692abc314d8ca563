package metrics

import (
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/model"
)

// Metric accumulates a scalar over the snapshots of a run.
type Metric interface {
	Name() string
	Observe(t float64, stats map[string]field.Stats)
	Value() float64
	Reset()
}

// SpeciesStats computes Stats of each field over the compartment of the
// species it belongs to. Fields of unknown species are skipped.
func SpeciesStats(m *model.Model, conc map[string]*field.Field) map[string]field.Stats {
	out := make(map[string]field.Stats, len(conc))
	for id, f := range conc {
		sp, ok := m.SpeciesByID(id)
		if !ok {
			continue
		}
		out[id] = f.Stats(sp.Compartment().Mask())
	}
	return out
}

// Defaults returns the metrics reported for every run of the given
// species.
func Defaults(species []string) []Metric {
	var out []Metric
	for _, id := range species {
		out = append(out, NewMean(id), NewDrift(id), NewSpread(id))
	}
	return append(out, NewNonNegative(1e-12))
}
