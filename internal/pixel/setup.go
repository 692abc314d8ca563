package pixel

import (
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/mathexpr"
	"github.com/san-kum/spatialsim/internal/model"
)

// term applies coeff * rate to one species of a compartment.
type term struct {
	species int
	coeff   float64
}

type reaction struct {
	name string
	expr *mathexpr.Expr
	// terms for the first and, on membranes, the second compartment
	termsA []term
	termsB []term
}

type compartment struct {
	id      string
	mask    *field.Mask
	stencil *geometry.Stencil
	offset  int

	// integrated species
	species []string
	spatial []bool
	diff    [][]float64

	// constant species, one value per local voxel
	constIDs  []string
	constVals [][]float64

	reactions []reaction
	positions [][3]float64
}

func (c *compartment) index(local, s int) int {
	return c.offset + local*len(c.species) + s
}

type membrane struct {
	id        string
	a, b      *compartment
	faces     []face
	reactions []reaction
}

type face struct {
	a, b int
	// scale converts a flux per unit area into a concentration rate.
	scale float64
	pos   [3]float64
}

func speciesIndex(ids []string, id string) int {
	for i, s := range ids {
		if s == id {
			return i
		}
	}
	return -1
}

func (s *Solver) buildCompartment(c *model.Compartment, init Initial) (*compartment, error) {
	mask := c.Mask()
	if mask == nil {
		return nil, dynamo.InvalidArgument("compartment '%s' has no geometry", c.Name())
	}
	comp := &compartment{
		id:      c.ID(),
		mask:    mask,
		stencil: geometry.NewStencil(mask),
		offset:  len(s.state),
	}
	n := comp.stencil.Len()
	comp.positions = make([][3]float64, n)
	for l, i := range comp.stencil.Voxels {
		x, y, z := s.geom.Position(i)
		comp.positions[l] = [3]float64{x, y, z}
	}

	var initial []*field.Field
	for _, sp := range c.Species().Items() {
		conc, err := s.initialConcentration(sp, init)
		if err != nil {
			return nil, err
		}
		if sp.Constant() {
			vals := make([]float64, n)
			for l, i := range comp.stencil.Voxels {
				vals[l] = conc.Values[i]
			}
			comp.constIDs = append(comp.constIDs, sp.ID())
			comp.constVals = append(comp.constVals, vals)
			continue
		}
		diff, err := sp.Diffusion()
		if err != nil {
			return nil, err
		}
		d := make([]float64, n)
		for l, i := range comp.stencil.Voxels {
			d[l] = diff.Values[i]
		}
		comp.species = append(comp.species, sp.ID())
		comp.spatial = append(comp.spatial, sp.Spatial())
		comp.diff = append(comp.diff, d)
		initial = append(initial, conc)
	}

	ns := len(comp.species)
	state := make([]float64, n*ns)
	for si, conc := range initial {
		for l, i := range comp.stencil.Voxels {
			state[l*ns+si] = conc.Values[i]
		}
	}
	s.state = append(s.state, state...)
	return comp, nil
}

func (s *Solver) initialConcentration(sp *model.Species, init Initial) (*field.Field, error) {
	if f, ok := init.Concentrations[sp.ID()]; ok && !sp.Constant() {
		if f.Volume != s.geom.Volume {
			return nil, dynamo.InvalidArgument("initial concentration of '%s' is %s, grid is %s",
				sp.Name(), f.Volume, s.geom.Volume)
		}
		return f.Clone().Clamp(sp.Compartment().Mask()), nil
	}
	return sp.Concentration()
}

func (s *Solver) compileReaction(r *model.Reaction, a, b *compartment) (reaction, error) {
	e, err := r.Compile()
	if err != nil {
		return reaction{}, err
	}
	out := reaction{name: r.Name(), expr: e}
	stoich := r.Stoichiometry()
	for _, id := range r.StoichiometryIDs() {
		coeff := stoich[id]
		if si := speciesIndex(a.species, id); si >= 0 {
			out.termsA = append(out.termsA, term{species: si, coeff: coeff})
		} else if b != nil {
			if si := speciesIndex(b.species, id); si >= 0 {
				out.termsB = append(out.termsB, term{species: si, coeff: coeff})
			}
		}
	}
	for id, v := range r.ParameterValues() {
		s.constants[id] = v
	}
	return out, nil
}

func (s *Solver) buildMembrane(mem *model.Membrane, comps map[string]*compartment) (*membrane, error) {
	ca, cb := mem.Compartments()
	a, b := comps[ca.ID()], comps[cb.ID()]
	out := &membrane{id: mem.ID(), a: a, b: b}
	for _, r := range mem.Reactions().Items() {
		rc, err := s.compileReaction(r, a, b)
		if err != nil {
			return nil, err
		}
		out.reactions = append(out.reactions, rc)
	}
	for _, f := range mem.Faces() {
		x, y, z := s.geom.Position(f.A)
		out.faces = append(out.faces, face{
			a:     a.stencil.Local[f.A],
			b:     b.stencil.Local[f.B],
			scale: 1 / s.geom.VoxelSize[f.Axis],
			pos:   [3]float64{x, y, z},
		})
	}
	return out, nil
}

// maxStableTimestep bounds forward Euler for the diffusion operator:
// dt <= 1 / (2 * D * sum_k 1/dx_k^2) over the axes with extent.
func (s *Solver) maxStableTimestep() float64 {
	inv := 0.0
	for k, dx := range s.geom.VoxelSize {
		if k < s.geom.Axes() {
			inv += 1 / (dx * dx)
		}
	}
	dt := math.Inf(1)
	for _, c := range s.comps {
		for si, d := range c.diff {
			if !c.spatial[si] {
				continue
			}
			for _, v := range d {
				if v > 0 {
					dt = math.Min(dt, 1/(2*v*inv))
				}
			}
		}
	}
	return dt
}
