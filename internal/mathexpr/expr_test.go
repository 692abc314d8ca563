package mathexpr

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

func TestEval(t *testing.T) {
	tests := []struct {
		src  string
		vars map[string]float64
		want float64
	}{
		{"1 + 2", nil, 3},
		{"1 / 2", nil, 0.5},
		{"2 ^ 3", nil, 8},
		{"2 ** 0.5", nil, math.Sqrt2},
		{"k1 * A", map[string]float64{"k1": 0.5, "A": 4}, 2},
		{"exp(-x) * cos(y)", map[string]float64{"x": 0, "y": 0}, 1},
		{"pow(x, 2) + sqrt(16)", map[string]float64{"x": 3}, 13},
		{"log(1) + ln(1) + log10(100)", nil, 2},
		{"max(a, 3) + abs(-1)", map[string]float64{"a": 5}, 6},
		{"2 * pi", nil, 2 * math.Pi},
		{"x > 1 ? 10 : 20", map[string]float64{"x": 2}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, tt.vars)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Eval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars []string
	}{
		{"syntax", "1 +* 2", nil},
		{"unknown symbol", "k * A", []string{"A"}},
		{"empty", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, tt.vars...)
			if !errors.Is(err, dynamo.ErrInvalidArgument) {
				t.Errorf("Compile(%q) error = %v, want invalid argument", tt.src, err)
			}
		})
	}
}

func TestIdentifiers(t *testing.T) {
	got, err := Identifiers("k1 * exp(-A) + max(B, pi) - k1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A", "B", "k1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers = %v, want %v", got, want)
	}
}

func TestEvaluatorReuse(t *testing.T) {
	e, err := Compile("a * b", "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	ev := NewEvaluator()
	for i := 1; i <= 3; i++ {
		ev.Set("a", float64(i))
		ev.Set("b", 2)
		got, err := ev.Eval(e)
		if err != nil {
			t.Fatal(err)
		}
		if got != float64(2*i) {
			t.Errorf("iteration %d: got %v", i, got)
		}
	}
}

func TestEvaluatorUnbound(t *testing.T) {
	e, err := Compile("a + 1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEvaluator().Eval(e); !errors.Is(err, dynamo.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestReserved(t *testing.T) {
	for _, name := range []string{"x1", "A", "k"} {
		if Reserved(name) {
			t.Errorf("%q should not be reserved", name)
		}
	}
	for _, name := range []string{"exp", "pi", "max", "and"} {
		if !Reserved(name) {
			t.Errorf("%q should be reserved", name)
		}
	}
}
