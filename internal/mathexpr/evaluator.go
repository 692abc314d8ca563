package mathexpr

import (
	"math"

	"github.com/expr-lang/expr/vm"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// Evaluator holds variable bindings and a reusable VM. An Evaluator must
// not be shared between goroutines; parallel solvers keep one per worker.
type Evaluator struct {
	env     map[string]any
	machine vm.VM
}

// NewEvaluator returns an evaluator with only pi bound.
func NewEvaluator() *Evaluator {
	return &Evaluator{env: map[string]any{Pi: math.Pi}}
}

// Set binds name to v.
func (ev *Evaluator) Set(name string, v float64) {
	ev.env[name] = v
}

// SetAll binds every entry of vars.
func (ev *Evaluator) SetAll(vars map[string]float64) {
	for name, v := range vars {
		ev.env[name] = v
	}
}

// Eval evaluates e with the current bindings. Unbound variables are an
// invalid argument.
func (ev *Evaluator) Eval(e *Expr) (float64, error) {
	for _, name := range e.vars {
		if _, ok := ev.env[name]; !ok {
			return 0, dynamo.InvalidArgument("variable %q is not bound", name)
		}
	}
	out, err := ev.machine.Run(e.program, ev.env)
	if err != nil {
		return 0, dynamo.InvalidArgument("evaluating %q: %v", e.src, err)
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, dynamo.InvalidArgument("evaluating %q: %v", e.src, err)
	}
	return v, nil
}
