package simulate

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/integrators"
	"github.com/san-kum/spatialsim/internal/metrics"
	"github.com/san-kum/spatialsim/internal/model"
)

var _ = Describe("Session", func() {
	var (
		ctx context.Context
		m   *model.Model
		s   *Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		m = cellModel(6, 4)
		s = NewSession(m)
	})

	Describe("snapshots", func() {
		It("records the initial state and one snapshot per interval", func() {
			results, err := s.Simulate(ctx, opts("0.002", "0.001"))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(times(results)).To(HaveExactElements(
				BeNumerically("==", 0),
				BeNumerically("~", 0.001, 1e-12),
				BeNumerically("~", 0.002, 1e-12),
			))
			Expect(results[0].Concentrations).To(HaveLen(5))
			Expect(results[0].Stats["A"].Avg).To(BeNumerically("==", 1))
			Expect(s.Results()).To(HaveLen(3))
		})

		It("appends to the history when continuing", func() {
			_, err := s.Simulate(ctx, opts("0.002", "0.001"))
			Expect(err).NotTo(HaveOccurred())

			o := opts("0.002", "0.001")
			o.Continue = true
			results, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[1].Time).To(BeNumerically("~", 0.004, 1e-12))
			Expect(s.Results()).To(HaveLen(5))
			for i, t := range times(s.Results()) {
				Expect(t).To(BeNumerically("~", 0.001*float64(i), 1e-12))
			}
		})

		It("starts over when not continuing", func() {
			_, err := s.Simulate(ctx, opts("0.002", "0.001"))
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Simulate(ctx, opts("0.001", "0.001"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Results()).To(HaveLen(2))
			Expect(s.Results()[0].Time).To(BeZero())
		})

		It("runs multiple duration pairs in order", func() {
			results, err := s.Simulate(ctx, opts("0.002;0.003", "0.001;0.0005"))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1 + 2 + 6))
			Expect(results[len(results)-1].Time).To(BeNumerically("~", 0.005, 1e-12))
			for i := 1; i < len(results); i++ {
				Expect(results[i].Time).To(BeNumerically(">", results[i-1].Time))
			}
		})

		It("keeps history but returns nothing when results are not requested", func() {
			o := opts("0.002", "0.001")
			o.ReturnResults = false
			results, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeNil())
			Expect(s.Results()).To(HaveLen(3))
		})

		It("conserves the total amount across membranes", func() {
			results, err := s.Simulate(ctx, opts("0.5", "0.1"))
			Expect(err).NotTo(HaveOccurred())
			amount := func(r *Result) float64 {
				total := 0.0
				for _, f := range r.Concentrations {
					for _, v := range f.Values {
						total += v
					}
				}
				return total
			}
			Expect(amount(results[len(results)-1])).To(BeNumerically("~", amount(results[0]), 1e-8))
			Expect(results[len(results)-1].Stats["E"].Max).To(BeNumerically(">", 0))
		})

		It("rebuilds from the last snapshot when the model changed", func() {
			_, err := s.Simulate(ctx, opts("0.002", "0.001"))
			Expect(err).NotTo(HaveOccurred())
			last := s.Results()[2]

			d, _ := m.SpeciesByID("D")
			Expect(d.SetDiffusionConstant(0)).To(Succeed())
			o := opts("0.001", "0.001")
			o.Continue = true
			o.Threads = 2
			results, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Time).To(BeNumerically("~", 0.003, 1e-12))
			Expect(results[0].Stats["D"].Avg).To(BeNumerically("~", last.Stats["D"].Avg, 1e-12))
		})

		It("keeps a static fem field unchanged across a rebuilt continuation", func() {
			m := staticModel()
			s := NewSession(m)
			o := opts("0.002", "0.001")
			o.Backend = BackendFEM
			_, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())

			a, _ := m.SpeciesByID("A")
			Expect(a.SetDiffusionConstant(0)).To(Succeed())
			o.Continue = true
			_, err = s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())

			history := s.Results()
			Expect(history).To(HaveLen(5))
			want := history[0].Concentrations["A"].Values
			for _, r := range history[1:] {
				got := r.Concentrations["A"].Values
				for i := range want {
					Expect(got[i]).To(BeNumerically("~", want[i], 1e-9), "t=%g voxel %d", r.Time, i)
				}
			}
		})

		It("notifies observers of every snapshot", func() {
			var seen []float64
			s = NewSession(m, WithObserver(ObserverFunc(func(r *Result) {
				seen = append(seen, r.Time)
			})))
			_, err := s.Simulate(ctx, opts("0.003", "0.001"))
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(4))
		})
	})

	Describe("rate output", func() {
		rms := func(a, b []float64) float64 {
			sum := 0.0
			for i := range a {
				sum += (a[i] - b[i]) * (a[i] - b[i])
			}
			return math.Sqrt(sum / float64(len(a)))
		}

		DescribeTable("dcdt on the last snapshot matches the final difference quotient",
			func(method integrators.Method, maxStep, interval float64) {
				m = decayModel()
				s = NewSession(m)
				o := DefaultOptions()
				o.Durations, o.Intervals = []float64{4 * interval}, []float64{interval}
				o.Pixel.Integrator = method
				o.Pixel.MaxTimestep = maxStep
				results, err := s.Simulate(ctx, o)
				Expect(err).NotTo(HaveOccurred())

				last, prev := results[len(results)-1], results[len(results)-2]
				dcdt := last.Dcdt["A"]
				Expect(dcdt).NotTo(BeNil())
				quotient := make([]float64, len(dcdt.Values))
				for i := range quotient {
					quotient[i] = (last.Concentrations["A"].Values[i] - prev.Concentrations["A"].Values[i]) / interval
				}
				zero := make([]float64, len(quotient))
				Expect(rms(dcdt.Values, quotient)).To(BeNumerically("<", 0.01*rms(quotient, zero)))

				for _, r := range results[:len(results)-1] {
					Expect(r.Dcdt).To(BeNil())
				}
				for _, r := range s.Results() {
					Expect(r.Dcdt).To(BeNil())
				}
			},
			Entry("RK101 with one step per interval", integrators.RK101, 0.01, 0.01),
			Entry("adaptive RK212", integrators.RK212, math.Inf(1), 0.001),
		)

		It("is never set by the fem backend", func() {
			o := opts("0.002", "0.001")
			o.Backend = BackendFEM
			results, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Dcdt).To(BeNil())
			}
		})
	})

	Describe("timeouts", func() {
		longRun := func(timeout time.Duration, partial bool) Options {
			o := opts("1000000", "10")
			o.Timeout = timeout
			o.ReturnPartial = partial
			o.Pixel.Integrator = integrators.RK101
			return o
		}

		It("fails with a timeout by default", func() {
			_, err := s.Simulate(ctx, longRun(50*time.Millisecond, false))
			Expect(err).To(MatchError(dynamo.ErrTimeout))
			Expect(len(s.Results())).To(BeNumerically(">=", 1))
			Expect(len(s.Results())).To(BeNumerically("<", 100001))
		})

		It("returns the completed snapshots in partial mode", func() {
			results, err := s.Simulate(ctx, longRun(50*time.Millisecond, true))
			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically(">=", 1))
			Expect(results).To(HaveLen(len(s.Results())))
		})

		It("returns only the initial state when the first step overruns", func() {
			results, err := s.Simulate(ctx, longRun(time.Nanosecond, true))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Time).To(BeZero())
		})

		It("continues from the last snapshot after a timeout", func() {
			_, err := s.Simulate(ctx, longRun(time.Nanosecond, true))
			Expect(err).NotTo(HaveOccurred())
			o := opts("0.002", "0.001")
			o.Continue = true
			results, err := s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Time).To(BeNumerically("~", 0.001, 1e-12))
		})
	})

	Describe("failures", func() {
		It("rejects malformed time sequences", func() {
			o := DefaultOptions()
			o.Durations, o.Intervals = []float64{1, 2}, []float64{0.1}
			_, err := s.Simulate(ctx, o)
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
		})

		It("restores the history after a numerical failure", func() {
			_, err := s.Simulate(ctx, opts("0.002", "0.001"))
			Expect(err).NotTo(HaveOccurred())

			outside, _ := m.Compartments().Get("outside")
			r, _ := outside.Reactions().Get("convert")
			Expect(r.SetExpression("A / 0")).To(Succeed())
			o := opts("0.002", "0.001")
			o.Continue = true
			_, err = s.Simulate(ctx, o)
			Expect(err).To(MatchError(dynamo.ErrNumerical))
			Expect(s.Results()).To(HaveLen(3))

			Expect(r.SetExpression("0.2 * A")).To(Succeed())
			_, err = s.Simulate(ctx, o)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Results()).To(HaveLen(5))
		})
	})

	It("records calls in the solver metrics", func() {
		collectors := metrics.NewSolver(prometheus.NewRegistry())
		s = NewSession(m, WithMetrics(collectors))
		_, err := s.Simulate(ctx, opts("0.002", "0.001"))
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.ToFloat64(collectors.Simulations.WithLabelValues("pixel", metrics.OutcomeCompleted))).To(Equal(1.0))
		Expect(testutil.ToFloat64(collectors.Snapshots.WithLabelValues("pixel"))).To(Equal(3.0))
	})
})
