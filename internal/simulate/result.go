package simulate

import "github.com/san-kum/spatialsim/internal/field"

// Result is one snapshot of every integrated species.
type Result struct {
	Time           float64                 `json:"time"`
	Concentrations map[string]*field.Field `json:"-"`
	// Dcdt is only set on the last result returned by a completed
	// Simulate call of a backend that records rates.
	Dcdt  map[string]*field.Field `json:"-"`
	Stats map[string]field.Stats  `json:"stats"`

	// nodes is the mesh state of a finite-element solver at Time, used to
	// resume it without resampling the voxel fields.
	nodes *meshState
}

type meshState struct {
	geometry uint64
	values   map[string][]float64
}

// Observer is notified of each snapshot as it is recorded.
type Observer interface {
	OnResult(r *Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r *Result)

func (f ObserverFunc) OnResult(r *Result) { f(r) }
