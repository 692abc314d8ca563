package fem

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
)

// Mesh is a conforming simplex mesh of one compartment.
type Mesh struct {
	Dim   int
	Nodes [][3]float64
	// Elements lists Dim+1 node indices per simplex.
	Elements [][]int
	// ElemVoxel is the local voxel each element lies in.
	ElemVoxel []int
	ElemType  []int

	// Voxels are the grid indices of the meshed voxels.
	Voxels     []int
	VoxelNodes [][]int
	NodeVoxels [][]int

	// Mass is the lumped mass of each node.
	Mass []float64
	// Stiffness holds the (Dim+1)x(Dim+1) element matrix of each element
	// type, row-major, for unit diffusion.
	Stiffness [][]float64

	cells   [3]int
	corners map[int]int
	measure float64
}

// 2D corners are numbered by bit 0 = x and bit 1 = y; 3D adds bit 2 = z.
var templates = map[int][][]int{
	2: {{0, 1, 3}, {0, 3, 2}},
	3: kuhn(),
}

// kuhn splits the unit cube into six tetrahedra along the 0-7 diagonal.
func kuhn() [][]int {
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	out := make([][]int, 0, len(perms))
	for _, p := range perms {
		v1 := 1 << p[0]
		v2 := v1 | 1<<p[1]
		out = append(out, []int{0, v1, v2, 7})
	}
	return out
}

// BuildMesh meshes the voxels of mask.
func BuildMesh(g geometry.Geometry, mask *field.Mask) (*Mesh, error) {
	vol := g.Volume
	dim := g.Axes()
	m := &Mesh{
		Dim:     dim,
		cells:   [3]int{vol.Width + 1, vol.Height + 1, vol.Depth + 1},
		corners: make(map[int]int),
		Voxels:  mask.Indices(),
	}
	m.measure = g.VoxelSize[0] * g.VoxelSize[1]
	if dim == 3 {
		m.measure *= g.VoxelSize[2]
	}

	ncorner := 1 << dim
	for l, i := range m.Voxels {
		x, y, z := vol.Coords(i)
		corners := make([]int, ncorner)
		for c := range corners {
			cx, cy, cz := x+c&1, y+(c>>1)&1, z+(c>>2)&1
			n := m.node(g, cx, cy, cz)
			corners[c] = n
			m.NodeVoxels[n] = append(m.NodeVoxels[n], l)
		}
		m.VoxelNodes = append(m.VoxelNodes, corners)
		for t, tmpl := range templates[dim] {
			elem := make([]int, len(tmpl))
			for k, c := range tmpl {
				elem[k] = corners[c]
			}
			m.Elements = append(m.Elements, elem)
			m.ElemVoxel = append(m.ElemVoxel, l)
			m.ElemType = append(m.ElemType, t)
		}
	}

	m.Mass = make([]float64, len(m.Nodes))
	for _, tmpl := range templates[dim] {
		verts := make([][]float64, len(tmpl))
		for k, c := range tmpl {
			verts[k] = []float64{
				float64(c&1) * g.VoxelSize[0],
				float64((c>>1)&1) * g.VoxelSize[1],
				float64((c>>2)&1) * g.VoxelSize[2],
			}[:dim]
		}
		k, _, err := localStiffness(verts)
		if err != nil {
			return nil, err
		}
		m.Stiffness = append(m.Stiffness, k)
	}
	share := m.measure / float64(len(templates[dim])) / float64(dim+1)
	for _, elem := range m.Elements {
		for _, n := range elem {
			m.Mass[n] += share
		}
	}
	return m, nil
}

func (m *Mesh) node(g geometry.Geometry, cx, cy, cz int) int {
	key := (cz*m.cells[1]+cy)*m.cells[0] + cx
	if n, ok := m.corners[key]; ok {
		return n
	}
	n := len(m.Nodes)
	m.corners[key] = n
	h := float64(g.Volume.Height)
	pos := [3]float64{
		g.Origin[0] + (float64(cx)-0.5)*g.VoxelSize[0],
		g.Origin[1] + (h-0.5-float64(cy))*g.VoxelSize[1],
		g.Origin[2],
	}
	if m.Dim == 3 {
		pos[2] += (float64(cz) - 0.5) * g.VoxelSize[2]
	}
	m.Nodes = append(m.Nodes, pos)
	m.NodeVoxels = append(m.NodeVoxels, nil)
	return n
}

// NodeAt returns the node at lattice corner (cx, cy, cz).
func (m *Mesh) NodeAt(cx, cy, cz int) (int, bool) {
	n, ok := m.corners[(cz*m.cells[1]+cy)*m.cells[0]+cx]
	return n, ok
}

// localStiffness returns the P1 stiffness matrix and measure of a simplex.
func localStiffness(verts [][]float64) ([]float64, float64, error) {
	dim := len(verts) - 1
	t := mat.NewDense(dim, dim, nil)
	for i := 1; i <= dim; i++ {
		for k := 0; k < dim; k++ {
			t.Set(i-1, k, verts[i][k]-verts[0][k])
		}
	}
	det := mat.Det(t)
	if det == 0 {
		return nil, 0, dynamo.InvalidArgument("degenerate mesh element")
	}
	var inv mat.Dense
	if err := inv.Inverse(t); err != nil {
		return nil, 0, dynamo.InvalidArgument("degenerate mesh element: %v", err)
	}
	measure := math.Abs(det)
	for k := 2; k <= dim; k++ {
		measure /= float64(k)
	}

	grads := make([][]float64, dim+1)
	grads[0] = make([]float64, dim)
	for i := 1; i <= dim; i++ {
		grads[i] = make([]float64, dim)
		for k := 0; k < dim; k++ {
			grads[i][k] = inv.At(k, i-1)
			grads[0][k] -= grads[i][k]
		}
	}

	n := dim + 1
	k := make([]float64, n*n)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			dot := 0.0
			for d := 0; d < dim; d++ {
				dot += grads[a][d] * grads[b][d]
			}
			k[a*n+b] = measure * dot
		}
	}
	return k, measure, nil
}

// ToNodes interpolates voxel values (indexed by grid index) onto nodes.
func (m *Mesh) ToNodes(f *field.Field, out []float64) {
	for n, voxels := range m.NodeVoxels {
		sum := 0.0
		for _, l := range voxels {
			sum += f.Values[m.Voxels[l]]
		}
		out[n] = sum / float64(len(voxels))
	}
}

// ToVoxels samples node values back onto the voxels of f.
func (m *Mesh) ToVoxels(u []float64, f *field.Field) {
	m.toVoxels(u, f, 0, len(m.VoxelNodes))
}

func (m *Mesh) toVoxels(u []float64, f *field.Field, start, end int) {
	for l := start; l < end; l++ {
		sum := 0.0
		for _, n := range m.VoxelNodes[l] {
			sum += u[n]
		}
		f.Values[m.Voxels[l]] = sum / float64(len(m.VoxelNodes[l]))
	}
}
