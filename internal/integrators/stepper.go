package integrators

import (
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// Stepper advances a state vector in place with one Runge-Kutta method. It
// owns the scratch buffers for a fixed state size and is not safe for
// concurrent use.
type Stepper struct {
	method Method
	dcdt   []float64
	prev   []float64
	lower  []float64
}

// NewStepper allocates a stepper for states of length n.
func NewStepper(method Method, n int) *Stepper {
	return &Stepper{
		method: method,
		dcdt:   make([]float64, n),
		prev:   make([]float64, n),
		lower:  make([]float64, n),
	}
}

func (s *Stepper) Method() Method { return s.method }

// Step advances x by dt. On error x is left in an unspecified state; call
// Undo to restore it.
func (s *Stepper) Step(sys System, x []float64, t, dt float64) error {
	switch s.method {
	case RK101:
		return s.stepEuler(sys, x, t, dt)
	case RK212:
		return s.stepHeun(sys, x, t, dt)
	case RK323:
		return s.stepLowStorage(&shuOsher, sys, x, t, dt)
	case RK435:
		return s.stepLowStorage(&rk435, sys, x, t, dt)
	default:
		return dynamo.InvalidArgument("unknown integrator %d", s.method)
	}
}

// Undo restores the state from before the last Step.
func (s *Stepper) Undo(x []float64) {
	copy(x, s.prev)
}

// Previous returns the state from before the last Step.
func (s *Stepper) Previous() []float64 {
	return s.prev
}

// Error is the local error of one adaptive step.
type Error struct {
	Abs float64
	Rel float64
}

// errorEpsilon keeps the relative error finite where the concentration
// is zero.
const errorEpsilon = 1e-14

// Error compares x with the embedded lower order solution of the last
// step. The relative error is normalised by the mean of the old and new
// values.
func (s *Stepper) Error(x []float64) Error {
	var e Error
	for i, v := range x {
		local := math.Abs(v - s.lower[i])
		e.Abs = math.Max(e.Abs, local)
		norm := 0.5 * (v + s.prev[i] + errorEpsilon)
		e.Rel = math.Max(e.Rel, local/norm)
	}
	return e
}
