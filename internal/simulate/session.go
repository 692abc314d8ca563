package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/fem"
	"github.com/san-kum/spatialsim/internal/logging"
	"github.com/san-kum/spatialsim/internal/metrics"
	"github.com/san-kum/spatialsim/internal/model"
)

// solverEnv is what a session lends to the solvers it builds.
type solverEnv struct {
	pool   *dynamo.Pool
	logger *slog.Logger
	meshes *fem.MeshCache
}

// Session drives simulations of one model and retains their results.
type Session struct {
	model     *model.Model
	logger    *slog.Logger
	metrics   *metrics.Solver
	observers []Observer
	meshes    *fem.MeshCache

	history []*Result

	// solver is kept for continuation while it matches the model and the
	// options it was built with.
	solver   Solver
	built    Options
	threads  int
	revision uint64
}

type SessionOption func(*Session)

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Solver) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func WithObserver(o Observer) SessionOption {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

func NewSession(m *model.Model, opts ...SessionOption) *Session {
	s := &Session{
		model:  m,
		logger: logging.Discard(),
		meshes: &fem.MeshCache{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Model() *model.Model { return s.model }

// Results returns the retained history: every snapshot since the last
// non-continuation call. Results never carry dcdt.
func (s *Session) Results() []*Result {
	return slices.Clone(s.history)
}

// Reset drops the history and the solver state.
func (s *Session) Reset() {
	s.history = nil
	s.solver = nil
}

// Simulate runs every (duration, interval) pair of o in order and returns
// one snapshot per interval, preceded by the initial state unless the call
// continues a previous one.
//
// On timeout the call fails with dynamo.ErrTimeout, keeping the snapshots
// completed so far in the history, or with ReturnPartial returns them with
// a nil error. A numerical failure restores the history to its state
// before the call.
func (s *Session) Simulate(ctx context.Context, o Options) ([]*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	threads := o.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	start := time.Now()
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	saved := slices.Clone(s.history)
	resume := o.Continue && len(s.history) > 0
	if !resume {
		s.Reset()
	}
	solver, err := s.prepare(o, threads, resume)
	if err != nil {
		s.history = saved
		return nil, err
	}

	total := 0
	for k := range o.Durations {
		total += snapshots(o.Durations[k], o.Intervals[k])
	}
	s.logger.Info("simulation started",
		"backend", solver.Name(),
		"snapshots", total,
		"continue", resume,
		"threads", threads,
		"t", solver.Time())

	run := &call{session: s, opts: o, solver: solver, start: start}
	if !resume {
		run.record()
	}
	for k := range o.Durations {
		n := snapshots(o.Durations[k], o.Intervals[k])
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return run.stop(err)
			}
			steps, err := solver.Run(ctx, o.Intervals[k])
			run.steps += steps
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return run.stop(err)
			}
			if err != nil {
				s.history = saved
				s.solver = nil
				run.observe(metrics.OutcomeFailed)
				s.logger.Error("simulation failed", "err", err, "t", solver.Time())
				return nil, err
			}
			run.record()
		}
	}

	s.solver, s.built, s.threads, s.revision = solver, o, threads, s.model.Revision()
	if solver.Capabilities().RateOutput && len(run.out) > 0 {
		if dcdt := solver.Dcdt(); dcdt != nil {
			last := *run.out[len(run.out)-1]
			last.Dcdt = dcdt
			run.out[len(run.out)-1] = &last
		}
	}
	run.observe(metrics.OutcomeCompleted)
	s.logger.Info("simulation finished",
		"backend", solver.Name(),
		"snapshots", len(run.out),
		"steps", run.steps,
		"t", solver.Time(),
		"elapsed", time.Since(start))
	return run.results(), nil
}

// prepare returns the solver to step: the live one when continuing with
// nothing changed, otherwise a new one starting from the last snapshot or
// from the model's initial state.
func (s *Session) prepare(o Options, threads int, resume bool) (Solver, error) {
	if resume && s.solver != nil && s.threads == threads &&
		s.revision == s.model.Revision() && sameSolverOptions(s.built, o) {
		return s.solver, nil
	}
	init := initial{}
	if resume {
		last := s.history[len(s.history)-1]
		init = initial{time: last.Time, conc: last.Concentrations, nodes: last.nodes}
	}
	env := solverEnv{
		pool:   dynamo.NewPool(threads),
		logger: s.logger,
		meshes: s.meshes,
	}
	s.solver = nil
	return backends[o.Backend](s.model, o, env, init)
}

func sameSolverOptions(a, b Options) bool {
	if a.Backend != b.Backend {
		return false
	}
	switch a.Backend {
	case BackendPixel:
		return a.Pixel.Integrator == b.Pixel.Integrator &&
			a.Pixel.Tolerance == b.Pixel.Tolerance &&
			a.Pixel.MaxTimestep == b.Pixel.MaxTimestep
	case BackendFEM:
		return a.FEM.MaxTimestep == b.FEM.MaxTimestep &&
			a.FEM.CGTolerance == b.FEM.CGTolerance &&
			a.FEM.CGMaxIterations == b.FEM.CGMaxIterations
	}
	return false
}

// call is the state of one Simulate call.
type call struct {
	session *Session
	opts    Options
	solver  Solver
	start   time.Time
	out     []*Result
	steps   int
}

func (c *call) record() {
	s := c.session
	conc := c.solver.Concentrations()
	r := &Result{
		Time:           c.solver.Time(),
		Concentrations: conc,
		Stats:          metrics.SpeciesStats(s.model, conc),
	}
	if ms, ok := c.solver.(meshSolver); ok {
		r.nodes = &meshState{geometry: ms.GeometryRevision(), values: ms.Nodes()}
	}
	s.history = append(s.history, r)
	c.out = append(c.out, r)
	s.logger.Debug("snapshot", "t", r.Time, "steps", c.steps)
	for _, o := range s.observers {
		o.OnResult(r)
	}
}

// stop ends the call early. The solver may be part way through an
// interval, so a later continuation restarts from the last snapshot.
func (c *call) stop(err error) ([]*Result, error) {
	s := c.session
	s.solver = nil
	if !errors.Is(err, context.DeadlineExceeded) {
		c.observe(metrics.OutcomeFailed)
		return nil, err
	}
	if c.opts.ReturnPartial {
		c.observe(metrics.OutcomePartial)
		s.logger.Warn("simulation timed out, returning partial results",
			"snapshots", len(c.out),
			"t", c.lastTime(),
			"timeout", c.opts.Timeout)
		return c.results(), nil
	}
	c.observe(metrics.OutcomeTimeout)
	return nil, fmt.Errorf("%w: simulation stopped early at t=%g after %s",
		dynamo.ErrTimeout, c.lastTime(), time.Since(c.start).Round(time.Millisecond))
}

func (c *call) lastTime() float64 {
	h := c.session.history
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1].Time
}

func (c *call) observe(outcome string) {
	c.session.metrics.ObserveRun(c.solver.Name(), outcome, c.steps, len(c.out), time.Since(c.start))
}

func (c *call) results() []*Result {
	if !c.opts.ReturnResults {
		return nil
	}
	if c.out == nil {
		return []*Result{}
	}
	return c.out
}
