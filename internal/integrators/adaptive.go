package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

const (
	initialStep = 1e-7
	safety      = 0.95
	minRatio    = 1e-20
)

// Adaptive chooses step sizes for an embedded scheme so that each accepted
// step keeps the local error within tolerance.
type Adaptive struct {
	stepper *Stepper
	tol     dynamo.Tolerance
	power   float64
	next    float64

	// Discarded counts rejected attempts since creation.
	Discarded int
}

// NewAdaptive wraps an adaptive stepper.
func NewAdaptive(s *Stepper, tol dynamo.Tolerance) *Adaptive {
	return &Adaptive{
		stepper: s,
		tol:     tol,
		power:   1 / float64(s.method.Order()),
		next:    initialStep,
	}
}

// Next returns the step size the controller will try first.
func (a *Adaptive) Next() float64 { return a.next }

// Advance takes one accepted step no longer than dtMax and returns its
// size. Rejected attempts are undone and retried with a smaller step.
func (a *Adaptive) Advance(sys System, x []float64, t, dtMax float64) (float64, error) {
	for {
		dt := math.Min(a.next, dtMax)
		if err := a.stepper.Step(sys, x, t, dt); err != nil {
			a.stepper.Undo(x)
			return 0, err
		}

		e := a.stepper.Error(x)
		factor := math.Pow(math.Min(a.tol.Abs/e.Abs, a.tol.Rel/e.Rel), a.power)
		a.next = math.Min(safety*dt*factor, dtMax)
		if a.next/dtMax < minRatio {
			a.stepper.Undo(x)
			return 0, fmt.Errorf("%w: failed to solve model to required accuracy (dt=%g)", dynamo.ErrNumerical, a.next)
		}
		if e.Abs > a.tol.Abs || e.Rel > a.tol.Rel {
			a.Discarded++
			a.stepper.Undo(x)
			continue
		}
		return dt, nil
	}
}
