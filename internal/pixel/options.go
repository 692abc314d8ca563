package pixel

import (
	"log/slog"
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/integrators"
	"github.com/san-kum/spatialsim/internal/logging"
)

// Options configures a pixel solver.
type Options struct {
	Integrator  integrators.Method
	Tolerance   dynamo.Tolerance
	MaxTimestep float64

	Pool   *dynamo.Pool
	Logger *slog.Logger
}

// DefaultOptions returns RK212 with 0.5% relative tolerance and no step
// limit.
func DefaultOptions() Options {
	return Options{
		Integrator:  integrators.RK212,
		Tolerance:   dynamo.DefaultTolerance(),
		MaxTimestep: math.Inf(1),
	}
}

// Initial overrides the model's initial state, for resuming a simulation.
type Initial struct {
	Time           float64
	Concentrations map[string]*field.Field
}

func (o *Options) normalize() error {
	if o.Pool == nil {
		o.Pool = dynamo.NewPool(1)
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.MaxTimestep == 0 {
		o.MaxTimestep = math.Inf(1)
	}
	if !(o.MaxTimestep > 0) {
		return dynamo.InvalidArgument("max timestep must be positive, got %g", o.MaxTimestep)
	}
	if o.Tolerance == (dynamo.Tolerance{}) {
		o.Tolerance = dynamo.DefaultTolerance()
	}
	if !(o.Tolerance.Abs > 0 && o.Tolerance.Rel > 0) {
		return dynamo.InvalidArgument("error tolerances must be positive, got %+v", o.Tolerance)
	}
	return nil
}
