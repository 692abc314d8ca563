package integrators

import "gonum.org/v1/gonum/floats"

// System is an ODE dx/dt = f(x, t) over a flat state vector.
type System interface {
	// Derive writes f(x, t) into dst. It must not retain x or dst.
	Derive(dst, x []float64, t float64) error
}

// stepEuler advances x by one forward Euler step.
func (s *Stepper) stepEuler(sys System, x []float64, t, dt float64) error {
	copy(s.prev, x)
	if err := sys.Derive(s.dcdt, x, t); err != nil {
		return err
	}
	floats.AddScaled(x, dt, s.dcdt)
	return nil
}

// stepHeun advances x by one Heun step. The intermediate Euler solution is
// kept as the lower order estimate.
func (s *Stepper) stepHeun(sys System, x []float64, t, dt float64) error {
	copy(s.prev, x)
	if err := sys.Derive(s.dcdt, x, t); err != nil {
		return err
	}
	floats.AddScaled(x, dt, s.dcdt)
	copy(s.lower, x)
	if err := sys.Derive(s.dcdt, x, t+dt); err != nil {
		return err
	}
	floats.Add(x, s.prev)
	floats.AddScaled(x, dt, s.dcdt)
	floats.Scale(0.5, x)
	return nil
}
