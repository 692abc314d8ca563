package geometry

import "github.com/san-kum/spatialsim/internal/field"

// Stencil lists the voxels of one compartment with their six face
// neighbours as local indices. A neighbour outside the compartment or the
// grid maps to the voxel itself, which makes the diffusive flux across that
// face zero.
type Stencil struct {
	// Voxels holds the grid index of each local voxel.
	Voxels []int
	// Local maps a grid index to its local index, or -1.
	Local []int
	// Neighbours holds -x, +x, -y, +y, -z, +z local neighbours.
	Neighbours [][6]int
}

// NewStencil builds the stencil of mask.
func NewStencil(mask *field.Mask) *Stencil {
	vol := mask.Volume
	s := &Stencil{
		Voxels: mask.Indices(),
		Local:  make([]int, vol.Size()),
	}
	for i := range s.Local {
		s.Local[i] = -1
	}
	for l, i := range s.Voxels {
		s.Local[i] = l
	}
	s.Neighbours = make([][6]int, len(s.Voxels))
	for l, i := range s.Voxels {
		x, y, z := vol.Coords(i)
		for axis, d := range offsets {
			for k, sign := range [2]int{-1, 1} {
				nx, ny, nz := x+sign*d[0], y+sign*d[1], z+sign*d[2]
				n := l
				if vol.Contains(nx, ny, nz) {
					if j := s.Local[vol.Index(nx, ny, nz)]; j >= 0 {
						n = j
					}
				}
				s.Neighbours[l][2*axis+k] = n
			}
		}
	}
	return s
}

// Len returns the number of voxels.
func (s *Stencil) Len() int {
	return len(s.Voxels)
}
