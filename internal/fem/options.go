package fem

import (
	"log/slog"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/logging"
)

// Options configures a finite-element solver.
type Options struct {
	// MaxTimestep bounds each implicit step.
	MaxTimestep float64
	// CGTolerance is the relative residual at which the linear solve stops.
	CGTolerance float64
	// CGMaxIterations bounds the linear solve; 0 selects 10 * nodes.
	CGMaxIterations int

	Pool   *dynamo.Pool
	Logger *slog.Logger
	Cache  *MeshCache
}

// DefaultOptions returns a 0.1 time step and a 1e-10 CG tolerance.
func DefaultOptions() Options {
	return Options{
		MaxTimestep: 0.1,
		CGTolerance: 1e-10,
	}
}

// Initial overrides the model's initial state, for resuming a simulation.
type Initial struct {
	Time           float64
	Concentrations map[string]*field.Field

	// Nodes holds node values of an earlier solver by species ID. They
	// take precedence over Concentrations while Geometry still equals the
	// model's geometry revision, so resuming on an unchanged mesh does not
	// go through the voxel grid.
	Nodes    map[string][]float64
	Geometry uint64
}

func (o *Options) normalize() error {
	if o.Pool == nil {
		o.Pool = dynamo.NewPool(1)
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Cache == nil {
		o.Cache = &MeshCache{}
	}
	if o.MaxTimestep == 0 {
		o.MaxTimestep = 0.1
	}
	if o.CGTolerance == 0 {
		o.CGTolerance = 1e-10
	}
	if !(o.MaxTimestep > 0) {
		return dynamo.InvalidArgument("max timestep must be positive, got %g", o.MaxTimestep)
	}
	if !(o.CGTolerance > 0) {
		return dynamo.InvalidArgument("cg tolerance must be positive, got %g", o.CGTolerance)
	}
	return nil
}
