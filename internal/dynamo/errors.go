package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model and simulation operations.
var (
	// ErrInvalidArgument indicates malformed input: bad expressions, unknown
	// names, out-of-range indices, shape mismatches or bad time sequences.
	ErrInvalidArgument = errors.New("dynamo: invalid argument")

	// ErrTimeout indicates the wall-clock budget of a simulation was exceeded.
	ErrTimeout = errors.New("dynamo: simulation timed out")

	// ErrNumerical indicates a non-finite value was produced while stepping.
	ErrNumerical = errors.New("dynamo: numerical failure")
)

// InvalidArgument returns an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Species string
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Species != "" {
		return fmt.Sprintf("step %d (t=%g), species %q: %v", e.Step, e.Time, e.Species, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
