package fem

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/mathexpr"
	"github.com/san-kum/spatialsim/internal/model"
)

const relativeTolerance = 1e-12

// Solver is the finite-element backend. Each step treats reactions and
// membrane fluxes explicitly and diffusion implicitly:
//
//	(M + dt K_D) u' = M (u + dt r) + dt q
//
// with M the lumped mass matrix, K_D the stiffness matrix, r the reaction
// rates at the nodes and q the membrane fluxes.
type Solver struct {
	opts    Options
	geom    geometry.Geometry
	meshRev uint64

	comps     []*compartment
	membranes []*membrane

	t          float64
	steps      int
	iterations int

	constants map[string]float64
	evals     []*mathexpr.Evaluator
}

// New meshes each compartment of m and builds a solver. Meshes come from
// opts.Cache, so solvers sharing a cache share meshes for one geometry.
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
	meshes, err := opts.Cache.Meshes(m)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		opts:      opts,
		geom:      m.Geometry(),
		meshRev:   m.GeometryRevision(),
		t:         init.Time,
		constants: params,
	}
	byID := make(map[string]*compartment)
	for _, c := range m.Compartments().Items() {
		mesh, ok := meshes[c.ID()]
		if !ok {
			return nil, dynamo.InvalidArgument("compartment '%s' has no geometry", c.Name())
		}
		comp, err := s.buildCompartment(c, mesh, init)
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
	if id, ok := s.finite(); !ok {
		return nil, &dynamo.SimulationError{Time: s.t, Species: id, Wrapped: dynamo.ErrNumerical}
	}

	s.evals = make([]*mathexpr.Evaluator, opts.Pool.Workers())
	for w := range s.evals {
		ev := mathexpr.NewEvaluator()
		ev.SetAll(s.constants)
		s.evals[w] = ev
	}

	nodes := 0
	for _, c := range s.comps {
		nodes += len(c.mesh.Nodes)
	}
	opts.Logger.Debug("fem solver ready",
		"compartments", len(s.comps),
		"membranes", len(s.membranes),
		"nodes", nodes,
		"max_timestep", opts.MaxTimestep,
		"workers", opts.Pool.Workers())
	return s, nil
}

func (s *Solver) Name() string { return "fem" }

// Capabilities reports that dc/dt is not available from this backend.
func (s *Solver) Capabilities() dynamo.Capabilities {
	return dynamo.Capabilities{}
}

func (s *Solver) Time() float64 { return s.t }

func (s *Solver) Steps() int { return s.steps }

// Iterations returns the total number of conjugate gradient iterations.
func (s *Solver) Iterations() int { return s.iterations }

// Run advances the solution by duration in steps of at most MaxTimestep.
// The context is checked after every step.
func (s *Solver) Run(ctx context.Context, duration float64) (int, error) {
	if !(duration > 0) {
		return 0, dynamo.InvalidArgument("duration must be positive, got %g", duration)
	}
	steps := 0
	elapsed := 0.0
	for elapsed+duration*relativeTolerance < duration {
		dt := math.Min(s.opts.MaxTimestep, duration-elapsed)
		if err := s.step(dt); err != nil {
			return steps, s.wrap(err)
		}
		if id, ok := s.finite(); !ok {
			return steps, &dynamo.SimulationError{Step: s.steps, Time: s.t, Species: id, Wrapped: dynamo.ErrNumerical}
		}
		elapsed += dt
		s.t += dt
		steps++
		s.steps++

		if err := ctx.Err(); err != nil {
			return steps, err
		}
	}
	return steps, nil
}

func (s *Solver) step(dt float64) error {
	for _, c := range s.comps {
		for si := range c.species {
			clear(c.rate[si])
			clear(c.amount[si])
		}
		if len(c.reactions) == 0 {
			continue
		}
		err := s.opts.Pool.Run(len(c.mesh.Nodes), func(worker, start, end int) error {
			return s.reactionRates(c, s.evals[worker], start, end)
		})
		if err != nil {
			return err
		}
	}
	for _, m := range s.membranes {
		if err := s.membraneFluxes(m, s.evals[0]); err != nil {
			return err
		}
	}

	for _, c := range s.comps {
		maxIter := s.opts.CGMaxIterations
		if maxIter == 0 {
			maxIter = 10 * len(c.mesh.Nodes)
		}
		c.op.dt = dt
		rhs := c.cg.rhs(len(c.mesh.Nodes))
		for si := range c.species {
			u := c.u[si]
			for n := range rhs {
				rhs[n] = c.mesh.Mass[n]*(u[n]+dt*c.rate[si][n]) + dt*c.amount[si][n]
			}
			if ok, _ := dynamo.AllFinite(rhs); !ok {
				return &dynamo.SimulationError{Species: c.species[si], Wrapped: dynamo.ErrNumerical}
			}
			if !c.spatial[si] {
				for n := range u {
					u[n] = rhs[n] / c.mesh.Mass[n]
				}
				c.uniform(si)
				continue
			}
			c.op.diff = c.diff[si]
			it, err := c.cg.solve(c.op, rhs, u, s.opts.CGTolerance, maxIter)
			s.iterations += it
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Solver) wrap(err error) error {
	var se *dynamo.SimulationError
	if errors.As(err, &se) {
		se.Step, se.Time = s.steps, s.t
		return se
	}
	return &dynamo.SimulationError{Step: s.steps, Time: s.t, Wrapped: err}
}

func (s *Solver) reactionRates(c *compartment, ev *mathexpr.Evaluator, start, end int) error {
	ev.Set(model.VarT, s.t)
	for n := start; n < end; n++ {
		setNode(ev, c, n)
		pos := c.mesh.Nodes[n]
		ev.Set(model.VarX, pos[0])
		ev.Set(model.VarY, pos[1])
		ev.Set(model.VarZ, pos[2])
		for _, r := range c.reactions {
			rate, err := ev.Eval(r.expr)
			if err != nil {
				return err
			}
			for _, tm := range r.termsA {
				c.rate[tm.species][n] += tm.coeff * rate
			}
		}
	}
	return nil
}

func (s *Solver) membraneFluxes(m *membrane, ev *mathexpr.Evaluator) error {
	ev.Set(model.VarT, s.t)
	for _, f := range m.faces {
		setMean(ev, m.a, f.nodesA)
		setMean(ev, m.b, f.nodesB)
		ev.Set(model.VarX, f.pos[0])
		ev.Set(model.VarY, f.pos[1])
		ev.Set(model.VarZ, f.pos[2])
		for _, r := range m.reactions {
			rate, err := ev.Eval(r.expr)
			if err != nil {
				return err
			}
			q := rate * f.weight
			for _, tm := range r.termsA {
				for _, n := range f.nodesA {
					m.a.amount[tm.species][n] += tm.coeff * q
				}
			}
			for _, tm := range r.termsB {
				for _, n := range f.nodesB {
					m.b.amount[tm.species][n] += tm.coeff * q
				}
			}
		}
	}
	return nil
}

func setNode(ev *mathexpr.Evaluator, c *compartment, n int) {
	for si, id := range c.species {
		ev.Set(id, c.u[si][n])
	}
	for ci, id := range c.constIDs {
		ev.Set(id, c.constVals[ci][n])
	}
}

func setMean(ev *mathexpr.Evaluator, c *compartment, nodes []int) {
	mean := func(vals []float64) float64 {
		sum := 0.0
		for _, n := range nodes {
			sum += vals[n]
		}
		return sum / float64(len(nodes))
	}
	for si, id := range c.species {
		ev.Set(id, mean(c.u[si]))
	}
	for ci, id := range c.constIDs {
		ev.Set(id, mean(c.constVals[ci]))
	}
}

func (s *Solver) finite() (string, bool) {
	for _, c := range s.comps {
		for si, u := range c.u {
			if ok, _ := dynamo.AllFinite(u); !ok {
				return c.species[si], false
			}
		}
	}
	return "", true
}

// Concentrations samples the node values back onto the voxel grid.
func (s *Solver) Concentrations() map[string]*field.Field {
	out := make(map[string]*field.Field)
	for _, c := range s.comps {
		for si, id := range c.species {
			f := field.New(s.geom.Volume)
			u := c.u[si]
			s.opts.Pool.For(len(c.mesh.VoxelNodes), func(start, end int) {
				c.mesh.toVoxels(u, f, start, end)
			})
			out[id] = f
		}
	}
	return out
}

// Nodes returns a copy of the node values of every integrated species.
func (s *Solver) Nodes() map[string][]float64 {
	out := make(map[string][]float64)
	for _, c := range s.comps {
		for si, id := range c.species {
			out[id] = slices.Clone(c.u[si])
		}
	}
	return out
}

// GeometryRevision is the model geometry revision the meshes were built for.
func (s *Solver) GeometryRevision() uint64 { return s.meshRev }

// Dcdt always returns nil; the implicit scheme does not produce rates.
func (s *Solver) Dcdt() map[string]*field.Field { return nil }

// Amount returns the integral of a species over its compartment.
func (s *Solver) Amount(id string) float64 {
	for _, c := range s.comps {
		if si := speciesIndex(c.species, id); si >= 0 {
			sum := 0.0
			for n, v := range c.u[si] {
				sum += c.mesh.Mass[n] * v
			}
			return sum
		}
	}
	return 0
}
