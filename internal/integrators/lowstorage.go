package integrators

import "gonum.org/v1/gonum/floats"

// lowStorage holds the coefficients of a 3S* low-storage scheme. Stage i
// computes
//
//	s2 += delta[i] * x
//	x   = g1[i]*x + g2[i]*s2 + g3[i]*s3 + beta[i]*dt*f(x)
//
// with s3 the state at the start of the step. The lower order estimate is
// final[0]*x + final[1]*s2 + final[2]*s3.
type lowStorage struct {
	g1, g2, g3, beta, delta []float64
	final                   [3]float64
}

var shuOsher = lowStorage{
	g1:    []float64{1, 0.25, 2.0 / 3.0},
	g2:    []float64{0, 0, 0},
	g3:    []float64{0, 0.75, 1.0 / 3.0},
	beta:  []float64{1, 0.25, 2.0 / 3.0},
	delta: []float64{0, 0, 1},
	final: [3]float64{0, 2, -1},
}

var rk435 = func() lowStorage {
	delta := []float64{
		1.0, 0.081252332929194, -1.083849060586449, -1.096110881845602,
		2.859440022030827, -0.655568367959557, -0.194421504490852,
	}
	norm := 1 / floats.Sum(delta)
	return lowStorage{
		g1:    []float64{0, -0.497531095840104, 1.010070514199942, -3.196559004608766, 1.717835630267259},
		g2:    []float64{1, 1.384996869124138, 3.878155713328178, -2.324512951813145, -0.514633322274467},
		g3:    []float64{0, 0, 0, 1.642598936063715, 0.188295940828347},
		beta:  []float64{0.075152045700771, 0.211361016946069, 1.100713347634329, 0.728537814675568, 0.393172889823198},
		delta: delta[:5],
		final: [3]float64{norm * delta[5], norm, norm * delta[6]},
	}
}()

// stepLowStorage advances x by one step of scheme ls. Stage times follow
// from applying the same recurrence to t.
func (s *Stepper) stepLowStorage(ls *lowStorage, sys System, x []float64, t, dt float64) error {
	copy(s.prev, x)
	for i := range s.lower {
		s.lower[i] = 0
	}
	tau, tau2 := t, 0.0
	for i := range ls.beta {
		if err := sys.Derive(s.dcdt, x, tau); err != nil {
			return err
		}
		floats.AddScaled(s.lower, ls.delta[i], x)
		floats.Scale(ls.g1[i], x)
		floats.AddScaled(x, ls.g2[i], s.lower)
		floats.AddScaled(x, ls.g3[i], s.prev)
		floats.AddScaled(x, ls.beta[i]*dt, s.dcdt)

		tau2 += ls.delta[i] * tau
		tau = ls.g1[i]*tau + ls.g2[i]*tau2 + ls.g3[i]*t + ls.beta[i]*dt
	}
	for i := range s.lower {
		s.lower[i] = ls.final[0]*x[i] + ls.final[1]*s.lower[i] + ls.final[2]*s.prev[i]
	}
	return nil
}
