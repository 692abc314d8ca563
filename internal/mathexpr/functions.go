package mathexpr

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

var unary = map[string]func(float64) float64{
	"exp":   math.Exp,
	"log":   math.Log,
	"ln":    math.Log,
	"log10": math.Log10,
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
}

// builtins are provided by expr itself and work on numbers.
var builtins = []string{"abs", "min", "max", "floor", "ceil", "round"}

// keywords cannot be used as identifiers in the expr grammar.
var keywords = []string{
	"and", "or", "not", "in", "matches", "contains", "startsWith", "endsWith",
	"let", "if", "else", "nil", "true", "false", "len", "all", "none", "any", "one",
	"filter", "map", "count", "sum", "mean", "median",
}

// Pi is the only predefined constant.
const Pi = "pi"

var reserved = func() map[string]bool {
	r := map[string]bool{Pi: true, "pow": true}
	for name := range unary {
		r[name] = true
	}
	for _, name := range builtins {
		r[name] = true
	}
	for _, name := range keywords {
		r[name] = true
	}
	return r
}()

// Reserved reports whether name is a function, constant or keyword and so
// cannot be used as a variable.
func Reserved(name string) bool {
	return reserved[name]
}

func functionOptions() []expr.Option {
	opts := make([]expr.Option, 0, len(unary)+1)
	for name, fn := range unary {
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
			}
			x, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			return fn(x), nil
		}))
	}
	opts = append(opts, expr.Function("pow", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("pow expects 2 arguments, got %d", len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return math.Pow(x, y), nil
	}))
	return opts
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expression produced %T, not a number", v)
	}
}
