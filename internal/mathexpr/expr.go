package mathexpr

import (
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// Expr is a compiled expression. It is immutable and safe for concurrent
// use; evaluation state lives in an [Evaluator].
type Expr struct {
	src     string
	vars    []string
	program *vm.Program
}

// Source returns the expression text.
func (e *Expr) Source() string { return e.src }

// Vars returns the sorted variable names the expression refers to.
func (e *Expr) Vars() []string { return e.vars }

type identCollector struct {
	names map[string]bool
}

func (c *identCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		c.names[id.Value] = true
	}
}

// Identifiers parses src and returns the sorted set of free variable names,
// excluding functions and constants.
func Identifiers(src string) ([]string, error) {
	if strings.TrimSpace(src) == "" {
		return nil, dynamo.InvalidArgument("empty expression")
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, dynamo.InvalidArgument("cannot parse expression %q: %v", src, err)
	}
	c := &identCollector{names: map[string]bool{}}
	ast.Walk(&tree.Node, c)

	names := make([]string, 0, len(c.names))
	for name := range c.names {
		if !reserved[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Compile parses src and checks that every variable is one of vars.
func Compile(src string, vars ...string) (*Expr, error) {
	used, err := Identifiers(src)
	if err != nil {
		return nil, err
	}
	env := make(map[string]any, len(vars)+1)
	for _, v := range vars {
		env[v] = 0.0
	}
	for _, name := range used {
		if _, ok := env[name]; !ok {
			return nil, dynamo.InvalidArgument("unknown symbol %q in expression %q", name, src)
		}
	}
	env[Pi] = 0.0

	opts := append([]expr.Option{expr.Env(env)}, functionOptions()...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, dynamo.InvalidArgument("cannot compile expression %q: %v", src, err)
	}
	return &Expr{src: src, vars: used, program: program}, nil
}

// Eval compiles src against the keys of vars and evaluates it once.
func Eval(src string, vars map[string]float64) (float64, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	e, err := Compile(src, names...)
	if err != nil {
		return 0, err
	}
	ev := NewEvaluator()
	for name, v := range vars {
		ev.Set(name, v)
	}
	return ev.Eval(e)
}
