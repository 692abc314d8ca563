package dynamo

import "math"

// Capabilities describes optional outputs of a solver backend. Callers must
// check the flags instead of assuming an output is present.
type Capabilities struct {
	// RateOutput reports whether the backend records dc/dt for the most
	// recent step.
	RateOutput bool
}

// Tolerance bounds the local integration error of an adaptive step.
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance matches the adaptive pixel integrators' defaults: no
// absolute bound and a 0.5% relative bound.
func DefaultTolerance() Tolerance {
	return Tolerance{Abs: math.MaxFloat64, Rel: 0.005}
}

// AllFinite reports whether every value of x is neither NaN nor infinite.
// It returns the index of the first offending value, or -1.
func AllFinite(x []float64) (bool, int) {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false, i
		}
	}
	return true, -1
}
