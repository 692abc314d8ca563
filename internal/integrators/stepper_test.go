package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// decay is dx/dt = -k x.
type decay struct{ k float64 }

func (d *decay) Derive(dst, x []float64, t float64) error {
	for i := range x {
		dst[i] = -d.k * x[i]
	}
	return nil
}

// ramp is dx/dt = t, exercising stage times.
type ramp struct{}

func (ramp) Derive(dst, x []float64, t float64) error {
	for i := range dst {
		dst[i] = t
	}
	return nil
}

type failing struct{}

func (failing) Derive(dst, x []float64, t float64) error {
	return errors.New("boom")
}

func integrate(t *testing.T, m Method, sys System, x []float64, dt float64, steps int) {
	t.Helper()
	s := NewStepper(m, len(x))
	for i := 0; i < steps; i++ {
		if err := s.Step(sys, x, float64(i)*dt, dt); err != nil {
			t.Fatalf("%s step %d: %v", m, i, err)
		}
	}
}

func TestFixedStepAccuracy(t *testing.T) {
	tests := []struct {
		method Method
		tol    float64
	}{
		{RK101, 1e-2},
		{RK212, 1e-4},
		{RK323, 1e-6},
		{RK435, 1e-8},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			x := []float64{1, 2}
			integrate(t, tt.method, &decay{k: 1}, x, 0.01, 100)
			for i, x0 := range []float64{1, 2} {
				want := x0 * math.Exp(-1)
				if math.Abs(x[i]-want) > tt.tol*x0 {
					t.Errorf("x[%d] = %v, want %v", i, x[i], want)
				}
			}
		})
	}
}

func TestStageTimes(t *testing.T) {
	for _, m := range []Method{RK212, RK323, RK435} {
		t.Run(m.String(), func(t *testing.T) {
			x := []float64{0}
			integrate(t, m, ramp{}, x, 0.1, 10)
			// x(1) = 1/2 exactly for any scheme of order >= 2
			if math.Abs(x[0]-0.5) > 1e-9 {
				t.Errorf("x(1) = %v, want 0.5", x[0])
			}
		})
	}
}

func TestUndo(t *testing.T) {
	x := []float64{3}
	s := NewStepper(RK323, 1)
	if err := s.Step(&decay{k: 2}, x, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if x[0] == 3 {
		t.Fatal("step did not change state")
	}
	s.Undo(x)
	if x[0] != 3 {
		t.Errorf("after undo x = %v, want 3", x[0])
	}
}

func TestAdaptiveRespectsTolerance(t *testing.T) {
	for _, m := range []Method{RK212, RK323, RK435} {
		t.Run(m.String(), func(t *testing.T) {
			x := []float64{1}
			a := NewAdaptive(NewStepper(m, 1), dynamo.Tolerance{Abs: math.MaxFloat64, Rel: 1e-4})
			now, steps := 0.0, 0
			for now < 1-1e-12 {
				steps++
				dt, err := a.Advance(&decay{k: 1}, x, now, 1-now)
				if err != nil {
					t.Fatal(err)
				}
				if dt <= 0 || dt > 1-now+1e-15 {
					t.Fatalf("bad step %v at t=%v", dt, now)
				}
				now += dt
			}
			if math.Abs(x[0]-math.Exp(-1)) > 1e-3 {
				t.Errorf("x(1) = %v, want %v", x[0], math.Exp(-1))
			}
			if steps > 5000 {
				t.Errorf("took %d steps, step size did not grow", steps)
			}
		})
	}
}

func TestAdaptiveSystemError(t *testing.T) {
	x := []float64{1}
	a := NewAdaptive(NewStepper(RK212, 1), dynamo.DefaultTolerance())
	if _, err := a.Advance(failing{}, x, 0, 1); err == nil {
		t.Fatal("expected error")
	}
	if x[0] != 1 {
		t.Errorf("state changed on failure: %v", x[0])
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range ListMethods() {
		m, err := ParseMethod(name)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", name, err)
		}
		if m.String() != name {
			t.Errorf("round trip %q -> %q", name, m.String())
		}
	}
	if _, err := ParseMethod("RK212"); err != nil {
		t.Errorf("case-insensitive parse failed: %v", err)
	}
	if _, err := ParseMethod("verlet"); !errors.Is(err, dynamo.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}
