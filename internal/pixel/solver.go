package pixel

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/integrators"
	"github.com/san-kum/spatialsim/internal/mathexpr"
	"github.com/san-kum/spatialsim/internal/model"
)

// relativeTolerance ends an interval once the remaining time is negligible.
const relativeTolerance = 1e-12

// Solver is the finite-difference backend. It owns its concentration state
// from construction until it is discarded.
type Solver struct {
	opts Options
	geom geometry.Geometry

	comps     []*compartment
	membranes []*membrane

	state []float64
	rate  []float64
	t     float64

	// constants holds global and reaction parameter values by ID.
	constants map[string]float64
	evals     []*mathexpr.Evaluator

	stepper   *integrators.Stepper
	adaptive  *integrators.Adaptive
	maxStable float64

	steps  int
	lastDt float64
}

// New builds a solver for m. A zero Initial starts from the model's
// initial concentrations at t = 0.
func New(m *model.Model, opts Options, init Initial) (*Solver, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if !m.HasGeometry() {
		return nil, dynamo.InvalidArgument("model has no geometry")
	}
	params, err := m.ParameterValues()
	if err != nil {
		return nil, err
	}

	s := &Solver{
		opts:      opts,
		geom:      m.Geometry(),
		t:         init.Time,
		constants: params,
	}

	byID := make(map[string]*compartment)
	for _, c := range m.Compartments().Items() {
		comp, err := s.buildCompartment(c, init)
		if err != nil {
			return nil, err
		}
		s.comps = append(s.comps, comp)
		byID[comp.id] = comp
	}
	for i, c := range m.Compartments().Items() {
		for _, r := range c.Reactions().Items() {
			rc, err := s.compileReaction(r, s.comps[i], nil)
			if err != nil {
				return nil, err
			}
			s.comps[i].reactions = append(s.comps[i].reactions, rc)
		}
	}
	for _, mem := range m.Membranes().Items() {
		if mem.Reactions().Len() == 0 {
			continue
		}
		mb, err := s.buildMembrane(mem, byID)
		if err != nil {
			return nil, err
		}
		s.membranes = append(s.membranes, mb)
	}

	if ok, i := dynamo.AllFinite(s.state); !ok {
		return nil, &dynamo.SimulationError{Time: s.t, Species: s.speciesAt(i), Wrapped: dynamo.ErrNumerical}
	}

	s.evals = make([]*mathexpr.Evaluator, opts.Pool.Workers())
	for w := range s.evals {
		ev := mathexpr.NewEvaluator()
		ev.SetAll(s.constants)
		s.evals[w] = ev
	}
	s.rate = make([]float64, len(s.state))
	s.stepper = integrators.NewStepper(opts.Integrator, len(s.state))
	if opts.Integrator.Adaptive() {
		s.adaptive = integrators.NewAdaptive(s.stepper, opts.Tolerance)
	}
	s.maxStable = s.maxStableTimestep()

	opts.Logger.Debug("pixel solver ready",
		"compartments", len(s.comps),
		"membranes", len(s.membranes),
		"variables", len(s.state),
		"integrator", opts.Integrator.String(),
		"max_stable_timestep", s.maxStable,
		"workers", opts.Pool.Workers())
	return s, nil
}

func (s *Solver) Name() string { return "pixel" }

// Capabilities reports that the pixel backend records dc/dt.
func (s *Solver) Capabilities() dynamo.Capabilities {
	return dynamo.Capabilities{RateOutput: true}
}

// Time returns the simulated time.
func (s *Solver) Time() float64 { return s.t }

// Steps returns the number of accepted steps since construction.
func (s *Solver) Steps() int { return s.steps }

// Discarded returns the number of rejected adaptive steps.
func (s *Solver) Discarded() int {
	if s.adaptive == nil {
		return 0
	}
	return s.adaptive.Discarded
}

// MaxStableTimestep returns the forward Euler stability limit.
func (s *Solver) MaxStableTimestep() float64 { return s.maxStable }

// Run advances the solution by duration. The context is checked after
// every step, so a single step is never interrupted.
func (s *Solver) Run(ctx context.Context, duration float64) (int, error) {
	if !(duration > 0) {
		return 0, dynamo.InvalidArgument("duration must be positive, got %g", duration)
	}
	steps := 0
	elapsed := 0.0
	for elapsed+duration*relativeTolerance < duration {
		remaining := duration - elapsed
		var dt float64
		if s.adaptive != nil {
			var err error
			maxDt := math.Min(s.opts.MaxTimestep, remaining)
			if next := s.adaptive.Next(); next < remaining && remaining < 2*next {
				maxDt = math.Min(maxDt, remaining/2)
			}
			dt, err = s.adaptive.Advance(s, s.state, s.t, maxDt)
			if err != nil {
				return steps, s.wrap(err, -1)
			}
		} else {
			dt = split(math.Min(s.opts.MaxTimestep, s.maxStable), remaining)
			if err := s.stepper.Step(s, s.state, s.t, dt); err != nil {
				s.stepper.Undo(s.state)
				return steps, s.wrap(err, -1)
			}
		}
		if ok, i := dynamo.AllFinite(s.state); !ok {
			return steps, s.wrap(dynamo.ErrNumerical, i)
		}
		elapsed += dt
		s.t += dt
		s.lastDt = dt
		steps++
		s.steps++

		if err := ctx.Err(); err != nil {
			return steps, err
		}
	}
	s.opts.Logger.Debug("pixel interval done",
		"t", s.t,
		"steps", steps,
		"discarded", s.Discarded(),
		"dt", s.lastDt)
	return steps, nil
}

// split returns the step to take with remaining time left. A remainder
// shorter than two steps is halved rather than leaving a sliver at the end.
func split(step, remaining float64) float64 {
	switch {
	case step >= remaining:
		return remaining
	case remaining < 2*step:
		return remaining / 2
	}
	return step
}

func (s *Solver) wrap(err error, index int) error {
	return &dynamo.SimulationError{
		Step:    s.steps,
		Time:    s.t,
		Species: s.speciesAt(index),
		Wrapped: err,
	}
}

func (s *Solver) speciesAt(index int) string {
	if index < 0 {
		return ""
	}
	for _, c := range s.comps {
		n := c.stencil.Len() * len(c.species)
		if index >= c.offset && index < c.offset+n {
			return c.species[(index-c.offset)%len(c.species)]
		}
	}
	return fmt.Sprintf("#%d", index)
}

// Concentrations returns a full grid field per integrated species.
func (s *Solver) Concentrations() map[string]*field.Field {
	return s.fields(s.state)
}

// Dcdt returns (c - c_prev) / dt for the last step, or nil before the
// first step.
func (s *Solver) Dcdt() map[string]*field.Field {
	if s.lastDt == 0 {
		return nil
	}
	prev := s.stepper.Previous()
	for i, v := range s.state {
		s.rate[i] = (v - prev[i]) / s.lastDt
	}
	return s.fields(s.rate)
}

func (s *Solver) fields(values []float64) map[string]*field.Field {
	out := make(map[string]*field.Field)
	for _, c := range s.comps {
		ns := len(c.species)
		for si, id := range c.species {
			f := field.New(s.geom.Volume)
			s.opts.Pool.For(len(c.stencil.Voxels), func(start, end int) {
				for l := start; l < end; l++ {
					f.Values[c.stencil.Voxels[l]] = values[c.offset+l*ns+si]
				}
			})
			out[id] = f
		}
	}
	return out
}
