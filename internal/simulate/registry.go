package simulate

import (
	"context"
	"slices"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/fem"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/model"
	"github.com/san-kum/spatialsim/internal/pixel"
)

// Solver advances concentration fields in time. Both backends satisfy it;
// callers check Capabilities before using Dcdt.
type Solver interface {
	Name() string
	Capabilities() dynamo.Capabilities
	Run(ctx context.Context, duration float64) (int, error)
	Time() float64
	// Concentrations returns a full-grid field per integrated species ID,
	// zero outside the species' compartment.
	Concentrations() map[string]*field.Field
	// Dcdt returns the rate of the last step, or nil when unsupported.
	Dcdt() map[string]*field.Field
}

// Backend names a solver implementation.
type Backend string

const (
	BackendPixel Backend = "pixel"
	BackendFEM   Backend = "fem"
)

// initial is where a new solver starts: the model's initial fields at t=0
// when conc is nil.
type initial struct {
	time  float64
	conc  map[string]*field.Field
	nodes *meshState
}

// meshSolver is implemented by solvers whose state lives on a mesh rather
// than on the voxel grid.
type meshSolver interface {
	Nodes() map[string][]float64
	GeometryRevision() uint64
}

type factory func(m *model.Model, o Options, env solverEnv, init initial) (Solver, error)

var backends = map[Backend]factory{
	BackendPixel: func(m *model.Model, o Options, env solverEnv, init initial) (Solver, error) {
		opts := o.Pixel
		opts.Pool, opts.Logger = env.pool, env.logger
		return pixel.New(m, opts, pixel.Initial{Time: init.time, Concentrations: init.conc})
	},
	BackendFEM: func(m *model.Model, o Options, env solverEnv, init initial) (Solver, error) {
		opts := o.FEM
		opts.Pool, opts.Logger, opts.Cache = env.pool, env.logger, env.meshes
		start := fem.Initial{Time: init.time, Concentrations: init.conc}
		if init.nodes != nil {
			start.Nodes, start.Geometry = init.nodes.values, init.nodes.geometry
		}
		return fem.New(m, opts, start)
	},
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	b := Backend(name)
	if _, ok := backends[b]; !ok {
		return "", dynamo.InvalidArgument("unknown backend %q (available: %v)", name, ListBackends())
	}
	return b, nil
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	names := make([]string, 0, len(backends))
	for b := range backends {
		names = append(names, string(b))
	}
	slices.Sort(names)
	return names
}
