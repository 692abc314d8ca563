package pixel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/integrators"
	"github.com/san-kum/spatialsim/internal/logging"
	"github.com/san-kum/spatialsim/internal/model"
)

var (
	red   = geometry.RGB(255, 0, 0)
	green = geometry.RGB(0, 255, 0)
)

// halves builds a w x h model whose left half is "left" and right half is
// "right".
func halves(t *testing.T, w, h int) *model.Model {
	t.Helper()
	m := model.New("halves")
	if _, err := m.AddCompartment("left", red); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddCompartment("right", green); err != nil {
		t.Fatal(err)
	}
	img := geometry.NewColorImage(field.Volume{Width: w, Height: h, Depth: 1})
	for i := range img.Pixels {
		x, _, _ := img.Volume.Coords(i)
		if x < w/2 {
			img.Pixels[i] = red
		} else {
			img.Pixels[i] = green
		}
	}
	if err := m.ImportGeometry(img); err != nil {
		t.Fatal(err)
	}
	return m
}

func getCompartment(t *testing.T, m *model.Model, name string) *model.Compartment {
	t.Helper()
	c, err := m.Compartments().Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func species(t *testing.T, c *model.Compartment, name string) *model.Species {
	t.Helper()
	s, err := c.AddSpecies(name)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sum(f *field.Field) float64 {
	total := 0.0
	for _, v := range f.Values {
		total += v
	}
	return total
}

func run(t *testing.T, s *Solver, duration float64) {
	t.Helper()
	if _, err := s.Run(context.Background(), duration); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestZeroDynamicsUnchanged(t *testing.T) {
	m := halves(t, 10, 10)
	a := species(t, getCompartment(t, m, "left"), "A")
	if err := a.SetAnalyticConcentration("1 + x*y"); err != nil {
		t.Fatal(err)
	}
	initial, _ := a.Concentration()

	s, err := New(m, DefaultOptions(), Initial{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		run(t, s, 0.1)
		got := s.Concentrations()["A"]
		for j, v := range got.Values {
			if v != initial.Values[j] {
				t.Fatalf("interval %d voxel %d: %v != %v", i, j, v, initial.Values[j])
			}
		}
	}
	if math.Abs(s.Time()-0.3) > 1e-12 {
		t.Errorf("time = %v", s.Time())
	}
}

func TestDiffusionConservesMass(t *testing.T) {
	for _, method := range []integrators.Method{integrators.RK101, integrators.RK212, integrators.RK323} {
		t.Run(method.String(), func(t *testing.T) {
			m := halves(t, 10, 10)
			a := species(t, getCompartment(t, m, "left"), "A")
			if err := a.SetAnalyticConcentration("x"); err != nil {
				t.Fatal(err)
			}
			if err := a.SetDiffusionConstant(1); err != nil {
				t.Fatal(err)
			}
			initial, _ := a.Concentration()
			mask := getCompartment(t, m, "left").Mask()

			opts := DefaultOptions()
			opts.Integrator = method
			s, err := New(m, opts, Initial{})
			if err != nil {
				t.Fatal(err)
			}
			if got := s.MaxStableTimestep(); math.Abs(got-0.25) > 1e-12 {
				t.Errorf("max stable timestep = %v, want 0.25", got)
			}
			run(t, s, 2)

			got := s.Concentrations()["A"]
			if math.Abs(sum(got)-sum(initial)) > 1e-9*sum(initial) {
				t.Errorf("mass %v, want %v", sum(got), sum(initial))
			}
			before, after := initial.Stats(mask), got.Stats(mask)
			if after.Max-after.Min >= before.Max-before.Min {
				t.Errorf("range did not shrink: %+v -> %+v", before, after)
			}
			for i, v := range got.Values {
				if !mask.Has(i) && v != 0 {
					t.Fatalf("voxel %d outside compartment is %v", i, v)
				}
			}
		})
	}
}

func decayModel(t *testing.T) *model.Model {
	t.Helper()
	m := halves(t, 10, 10)
	if _, err := m.AddParameter("k", "1"); err != nil {
		t.Fatal(err)
	}
	left := getCompartment(t, m, "left")
	a := species(t, left, "A")
	if err := a.SetUniformConcentration(1); err != nil {
		t.Fatal(err)
	}
	r, err := left.AddReaction("decay", "k * A")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetStoichiometry(a, -1); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDecay(t *testing.T) {
	for _, method := range []integrators.Method{integrators.RK101, integrators.RK212, integrators.RK323, integrators.RK435} {
		t.Run(method.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Integrator = method
			opts.Tolerance.Rel = 1e-5
			opts.MaxTimestep = 1e-3
			s, err := New(decayModel(t), opts, Initial{})
			if err != nil {
				t.Fatal(err)
			}
			run(t, s, 1)

			mask := s.comps[0].mask
			st := s.Concentrations()["A"].Stats(mask)
			want := math.Exp(-1)
			if math.Abs(st.Avg-want) > 1e-3 || st.Max-st.Min > 1e-12 {
				t.Errorf("stats %+v, want uniform %v", st, want)
			}

			dcdt := s.Dcdt()["A"]
			for _, i := range mask.Indices() {
				if math.Abs(dcdt.Values[i]+st.Avg) > 2e-3 {
					t.Fatalf("dcdt = %v, want about %v", dcdt.Values[i], -st.Avg)
				}
			}
		})
	}
}

func TestRunLogsIntervalSummary(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = logging.NewLogger("debug", &buf)
	s, err := New(decayModel(t), opts, Initial{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, s, 0.5)

	out := buf.String()
	if !strings.Contains(out, "pixel interval done") {
		t.Fatalf("missing interval summary in %q", out)
	}
	want := fmt.Sprintf("discarded=%d", s.Discarded())
	if !strings.Contains(out, want) || !strings.Contains(out, fmt.Sprintf("steps=%d", s.Steps())) {
		t.Errorf("summary %q lacks %s or steps=%d", out, want, s.Steps())
	}
}

func TestConstantSpeciesNotIntegrated(t *testing.T) {
	m := decayModel(t)
	left := getCompartment(t, m, "left")
	b := species(t, left, "B")
	b.SetConstant(true)
	if err := b.SetUniformConcentration(2); err != nil {
		t.Fatal(err)
	}
	r, _ := left.Reactions().Get("decay")
	if err := r.SetExpression("k * A * B"); err != nil {
		t.Fatal(err)
	}

	s, err := New(m, DefaultOptions(), Initial{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, s, 0.5)
	got := s.Concentrations()
	if _, ok := got["B"]; ok {
		t.Error("constant species should not be reported")
	}
	avg := got["A"].Stats(left.Mask()).Avg
	if math.Abs(avg-math.Exp(-1)) > 5e-3 {
		t.Errorf("A = %v, want about %v", avg, math.Exp(-1))
	}
}

func TestNonSpatialStaysUniform(t *testing.T) {
	m := halves(t, 10, 10)
	left := getCompartment(t, m, "left")
	a := species(t, left, "A")
	a.SetSpatial(false)
	if err := a.SetUniformConcentration(1); err != nil {
		t.Fatal(err)
	}
	r, err := left.AddReaction("grow", "x")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetStoichiometry(a, 1); err != nil {
		t.Fatal(err)
	}

	s, err := New(m, DefaultOptions(), Initial{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, s, 0.1)
	st := s.Concentrations()["A"].Stats(left.Mask())
	if st.Max-st.Min > 1e-12 {
		t.Errorf("non-spatial species is not uniform: %+v", st)
	}
	if st.Avg <= 1 {
		t.Errorf("species did not grow: %+v", st)
	}
}

func TestMembraneTransportConservesMass(t *testing.T) {
	m := halves(t, 10, 10)
	left, right := getCompartment(t, m, "left"), getCompartment(t, m, "right")
	a := species(t, left, "A")
	b := species(t, right, "B")
	for _, sp := range []*model.Species{a, b} {
		if err := sp.SetDiffusionConstant(0.5); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.SetUniformConcentration(1); err != nil {
		t.Fatal(err)
	}
	mem, err := m.Membranes().At(0)
	if err != nil {
		t.Fatal(err)
	}
	r, err := mem.AddReaction("transport", "2 * (A - B)")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetStoichiometry(a, -1); err != nil {
		t.Fatal(err)
	}
	if err := r.SetStoichiometry(b, 1); err != nil {
		t.Fatal(err)
	}

	s, err := New(m, DefaultOptions(), Initial{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, s, 1)

	got := s.Concentrations()
	total := sum(got["A"]) + sum(got["B"])
	if math.Abs(total-50) > 1e-8 {
		t.Errorf("total amount = %v, want 50", total)
	}
	if sum(got["B"]) <= 0 {
		t.Error("nothing crossed the membrane")
	}
}

func TestNumericalFailure(t *testing.T) {
	for _, method := range []integrators.Method{integrators.RK101, integrators.RK212} {
		t.Run(method.String(), func(t *testing.T) {
			m := decayModel(t)
			r, _ := getCompartment(t, m, "left").Reactions().Get("decay")
			if err := r.SetExpression("A / 0"); err != nil {
				t.Fatal(err)
			}
			opts := DefaultOptions()
			opts.Integrator = method
			opts.MaxTimestep = 0.01
			s, err := New(m, opts, Initial{})
			if err != nil {
				t.Fatal(err)
			}
			_, err = s.Run(context.Background(), 0.1)
			if !errors.Is(err, dynamo.ErrNumerical) {
				t.Fatalf("expected numerical failure, got %v", err)
			}
			var se *dynamo.SimulationError
			if !errors.As(err, &se) || se.Species != "A" {
				t.Errorf("error %v does not name species A", err)
			}
		})
	}
}

func TestThreadedMatchesSerial(t *testing.T) {
	build := func(threads int) map[string]*field.Field {
		m := halves(t, 32, 32)
		left, right := getCompartment(t, m, "left"), getCompartment(t, m, "right")
		a := species(t, left, "A")
		b := species(t, right, "B")
		_ = a.SetAnalyticConcentration("1 + sin(x) * cos(y)")
		_ = a.SetDiffusionConstant(1)
		_ = b.SetDiffusionConstant(2)
		r, _ := left.AddReaction("r", "0.3 * A * A")
		_ = r.SetStoichiometry(a, -1)
		mem, _ := m.Membranes().At(0)
		tr, _ := mem.AddReaction("t", "A - B")
		_ = tr.SetStoichiometry(a, -1)
		_ = tr.SetStoichiometry(b, 1)

		opts := DefaultOptions()
		opts.Pool = dynamo.NewPool(threads)
		s, err := New(m, opts, Initial{})
		if err != nil {
			t.Fatal(err)
		}
		run(t, s, 0.05)
		return s.Concentrations()
	}

	serial, threaded := build(1), build(4)
	for id, f := range serial {
		for i, v := range f.Values {
			if threaded[id].Values[i] != v {
				t.Fatalf("%s voxel %d: serial %v threaded %v", id, i, v, threaded[id].Values[i])
			}
		}
	}
}

func TestInitialOverride(t *testing.T) {
	m := decayModel(t)
	vol := m.Geometry().Volume
	init := field.New(vol)
	for i := range init.Values {
		init.Values[i] = 3
	}
	s, err := New(m, DefaultOptions(), Initial{Time: 5, Concentrations: map[string]*field.Field{"A": init}})
	if err != nil {
		t.Fatal(err)
	}
	if s.Time() != 5 {
		t.Errorf("time = %v", s.Time())
	}
	mask := getCompartment(t, m, "left").Mask()
	if st := s.Concentrations()["A"].Stats(mask); st.Avg != 3 {
		t.Errorf("initial avg = %v, want 3", st.Avg)
	}
	if got := sum(s.Concentrations()["A"]); got != 3*float64(mask.Count()) {
		t.Errorf("initial field not clamped to compartment: %v", got)
	}
	if s.Dcdt() != nil {
		t.Error("dcdt should be nil before the first step")
	}
}

func TestRunStopsWhenContextDone(t *testing.T) {
	s, err := New(decayModel(t), DefaultOptions(), Initial{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps, err := s.Run(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if steps != 1 {
		t.Errorf("steps = %d, want exactly one step before stopping", steps)
	}
}

func TestNewRequiresGeometry(t *testing.T) {
	_, err := New(model.New("empty"), DefaultOptions(), Initial{})
	if !errors.Is(err, dynamo.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func BenchmarkDerive(b *testing.B) {
	m := model.New("bench")
	_, _ = m.AddCompartment("c", red)
	img := geometry.NewColorImage(field.Volume{Width: 64, Height: 64, Depth: 1})
	for i := range img.Pixels {
		img.Pixels[i] = red
	}
	_ = m.ImportGeometry(img)
	c, _ := m.Compartments().Get("c")
	a, _ := c.AddSpecies("A")
	_ = a.SetDiffusionConstant(1)
	_ = a.SetUniformConcentration(1)
	r, _ := c.AddReaction("r", "A * (1 - A)")
	_ = r.SetStoichiometry(a, 1)

	s, err := New(m, DefaultOptions(), Initial{})
	if err != nil {
		b.Fatal(err)
	}
	dst := make([]float64, len(s.state))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Derive(dst, s.state, 0)
	}
}
