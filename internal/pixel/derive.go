package pixel

import (
	"github.com/san-kum/spatialsim/internal/mathexpr"
	"github.com/san-kum/spatialsim/internal/model"
)

// Derive evaluates dc/dt for the whole state. It implements
// integrators.System.
func (s *Solver) Derive(dst, x []float64, t float64) error {
	for _, c := range s.comps {
		if len(c.species) == 0 {
			continue
		}
		err := s.opts.Pool.Run(c.stencil.Len(), func(worker, start, end int) error {
			return s.deriveCompartment(c, s.evals[worker], dst, x, t, start, end)
		})
		if err != nil {
			return err
		}
	}
	for _, m := range s.membranes {
		if err := s.deriveMembrane(m, s.evals[0], dst, x, t); err != nil {
			return err
		}
	}
	for _, c := range s.comps {
		averageNonSpatial(c, dst)
	}
	return nil
}

func (s *Solver) deriveCompartment(c *compartment, ev *mathexpr.Evaluator, dst, x []float64, t float64, start, end int) error {
	ns := len(c.species)
	var inv [3]float64
	for k, dx := range s.geom.VoxelSize {
		inv[k] = 1 / (dx * dx)
	}
	ev.Set(model.VarT, t)

	for l := start; l < end; l++ {
		base := c.offset + l*ns
		nb := c.stencil.Neighbours[l]
		for si := 0; si < ns; si++ {
			d := c.diff[si]
			acc := 0.0
			if c.spatial[si] {
				cl := x[base+si]
				for dir, n := range nb {
					if n == l {
						continue
					}
					acc += 0.5 * (d[l] + d[n]) * inv[dir/2] * (x[c.offset+n*ns+si] - cl)
				}
			}
			dst[base+si] = acc
		}

		if len(c.reactions) == 0 {
			continue
		}
		setVoxel(ev, c, x, l)
		pos := c.positions[l]
		ev.Set(model.VarX, pos[0])
		ev.Set(model.VarY, pos[1])
		ev.Set(model.VarZ, pos[2])
		for _, r := range c.reactions {
			rate, err := ev.Eval(r.expr)
			if err != nil {
				return err
			}
			for _, tm := range r.termsA {
				dst[base+tm.species] += tm.coeff * rate
			}
		}
	}
	return nil
}

func (s *Solver) deriveMembrane(m *membrane, ev *mathexpr.Evaluator, dst, x []float64, t float64) error {
	ev.Set(model.VarT, t)
	for _, f := range m.faces {
		setVoxel(ev, m.a, x, f.a)
		setVoxel(ev, m.b, x, f.b)
		ev.Set(model.VarX, f.pos[0])
		ev.Set(model.VarY, f.pos[1])
		ev.Set(model.VarZ, f.pos[2])
		for _, r := range m.reactions {
			rate, err := ev.Eval(r.expr)
			if err != nil {
				return err
			}
			flux := rate * f.scale
			for _, tm := range r.termsA {
				dst[m.a.index(f.a, tm.species)] += tm.coeff * flux
			}
			for _, tm := range r.termsB {
				dst[m.b.index(f.b, tm.species)] += tm.coeff * flux
			}
		}
	}
	return nil
}

func setVoxel(ev *mathexpr.Evaluator, c *compartment, x []float64, l int) {
	ns := len(c.species)
	for si, id := range c.species {
		ev.Set(id, x[c.offset+l*ns+si])
	}
	for ci, id := range c.constIDs {
		ev.Set(id, c.constVals[ci][l])
	}
}

// averageNonSpatial replaces dc/dt of non-spatial species by its mean over
// the compartment, keeping them uniform.
func averageNonSpatial(c *compartment, dst []float64) {
	ns := len(c.species)
	n := c.stencil.Len()
	if n == 0 {
		return
	}
	for si, spatial := range c.spatial {
		if spatial {
			continue
		}
		sum := 0.0
		for l := 0; l < n; l++ {
			sum += dst[c.offset+l*ns+si]
		}
		avg := sum / float64(n)
		for l := 0; l < n; l++ {
			dst[c.offset+l*ns+si] = avg
		}
	}
}
