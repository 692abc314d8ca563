package fem

import (
	"slices"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/mathexpr"
	"github.com/san-kum/spatialsim/internal/model"
)

type term struct {
	species int
	coeff   float64
}

type reaction struct {
	expr   *mathexpr.Expr
	termsA []term
	termsB []term
}

type compartment struct {
	id   string
	mask *field.Mask
	mesh *Mesh
	op   *operator
	cg   *cgWork

	species []string
	spatial []bool
	// diff holds the diffusion constant of each species per local voxel.
	diff [][]float64
	// u holds node values per species; rate and amount are per-step scratch.
	u      [][]float64
	rate   [][]float64
	amount [][]float64

	constIDs  []string
	constVals [][]float64

	reactions []reaction
	totalMass float64
}

type membrane struct {
	a, b      *compartment
	faces     []meshFace
	reactions []reaction
}

// meshFace is a shared voxel face seen from both meshes: the same corner
// positions appear once in each compartment's node list.
type meshFace struct {
	nodesA []int
	nodesB []int
	// weight is the face measure shared out to each corner.
	weight float64
	pos    [3]float64
}

func speciesIndex(ids []string, id string) int {
	for i, s := range ids {
		if s == id {
			return i
		}
	}
	return -1
}

func (s *Solver) buildCompartment(c *model.Compartment, mesh *Mesh, init Initial) (*compartment, error) {
	comp := &compartment{
		id:   c.ID(),
		mask: c.Mask(),
		mesh: mesh,
		op:   newOperator(mesh, s.opts.Pool),
		cg:   newCGWork(len(mesh.Nodes)),
	}
	for _, m := range mesh.Mass {
		comp.totalMass += m
	}

	nodes := len(mesh.Nodes)
	for _, sp := range c.Species().Items() {
		u, ok := s.initialNodes(sp, init, nodes)
		if !ok {
			conc, err := s.initialConcentration(sp, init)
			if err != nil {
				return nil, err
			}
			u = make([]float64, nodes)
			mesh.ToNodes(conc, u)
		}
		if sp.Constant() {
			comp.constIDs = append(comp.constIDs, sp.ID())
			comp.constVals = append(comp.constVals, u)
			continue
		}
		diff, err := sp.Diffusion()
		if err != nil {
			return nil, err
		}
		d := make([]float64, len(mesh.Voxels))
		if sp.Spatial() {
			for l, i := range mesh.Voxels {
				d[l] = diff.Values[i]
			}
		}
		comp.species = append(comp.species, sp.ID())
		comp.spatial = append(comp.spatial, sp.Spatial())
		comp.diff = append(comp.diff, d)
		comp.u = append(comp.u, u)
		comp.rate = append(comp.rate, make([]float64, nodes))
		comp.amount = append(comp.amount, make([]float64, nodes))
	}
	for si, spatial := range comp.spatial {
		if !spatial {
			comp.uniform(si)
		}
	}
	return comp, nil
}

// uniform replaces species si by its mass-weighted mean.
func (c *compartment) uniform(si int) {
	if c.totalMass == 0 {
		return
	}
	sum := 0.0
	for n, v := range c.u[si] {
		sum += c.mesh.Mass[n] * v
	}
	avg := sum / c.totalMass
	for n := range c.u[si] {
		c.u[si][n] = avg
	}
}

// initialNodes returns a copy of the resumed node values of sp, if they
// were taken on the current mesh.
func (s *Solver) initialNodes(sp *model.Species, init Initial, nodes int) ([]float64, bool) {
	if sp.Constant() || init.Nodes == nil || init.Geometry != s.meshRev {
		return nil, false
	}
	u, ok := init.Nodes[sp.ID()]
	if !ok || len(u) != nodes {
		return nil, false
	}
	return slices.Clone(u), true
}

func (s *Solver) initialConcentration(sp *model.Species, init Initial) (*field.Field, error) {
	if f, ok := init.Concentrations[sp.ID()]; ok && !sp.Constant() {
		if f.Volume != s.geom.Volume {
			return nil, dynamo.InvalidArgument("initial concentration of '%s' is %s, grid is %s",
				sp.Name(), f.Volume, s.geom.Volume)
		}
		return f, nil
	}
	return sp.Concentration()
}

func (s *Solver) compileReaction(r *model.Reaction, a, b *compartment) (reaction, error) {
	e, err := r.Compile()
	if err != nil {
		return reaction{}, err
	}
	out := reaction{expr: e}
	stoich := r.Stoichiometry()
	for _, id := range r.StoichiometryIDs() {
		if si := speciesIndex(a.species, id); si >= 0 {
			out.termsA = append(out.termsA, term{species: si, coeff: stoich[id]})
		} else if b != nil {
			if si := speciesIndex(b.species, id); si >= 0 {
				out.termsB = append(out.termsB, term{species: si, coeff: stoich[id]})
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
	out := &membrane{a: a, b: b}
	for _, r := range mem.Reactions().Items() {
		rc, err := s.compileReaction(r, a, b)
		if err != nil {
			return nil, err
		}
		out.reactions = append(out.reactions, rc)
	}
	dim := s.geom.Axes()
	for _, f := range mem.Faces() {
		mf, err := s.meshFace(f, a.mesh, b.mesh, dim)
		if err != nil {
			return nil, err
		}
		out.faces = append(out.faces, mf)
	}
	return out, nil
}

// meshFace finds the corner nodes of a shared voxel face in both meshes.
func (s *Solver) meshFace(f geometry.FacePair, a, b *Mesh, dim int) (meshFace, error) {
	ax, ay, az := s.geom.Volume.Coords(f.A)
	bx, by, bz := s.geom.Volume.Coords(f.B)
	base := [3]int{ax, ay, az}
	if [3]int{bx, by, bz}[f.Axis] > base[f.Axis] {
		base[f.Axis]++
	}
	var others []int
	for k := 0; k < dim; k++ {
		if k != f.Axis {
			others = append(others, k)
		}
	}

	ncorner := 1 << len(others)
	out := meshFace{weight: s.geom.FaceArea(f.Axis) / float64(ncorner)}
	if dim == 2 {
		out.weight = s.geom.VoxelSize[1-f.Axis] / float64(ncorner)
	}
	for c := 0; c < ncorner; c++ {
		p := base
		for bit, k := range others {
			p[k] += (c >> bit) & 1
		}
		na, okA := a.NodeAt(p[0], p[1], p[2])
		nb, okB := b.NodeAt(p[0], p[1], p[2])
		if !okA || !okB {
			return meshFace{}, dynamo.InvalidArgument("membrane face between voxels %d and %d is not meshed", f.A, f.B)
		}
		out.nodesA = append(out.nodesA, na)
		out.nodesB = append(out.nodesB, nb)
		for k := 0; k < 3; k++ {
			out.pos[k] += a.Nodes[na][k] / float64(ncorner)
		}
	}
	return out, nil
}
