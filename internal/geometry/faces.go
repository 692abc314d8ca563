package geometry

import "github.com/san-kum/spatialsim/internal/field"

// FacePair is a voxel face shared by two compartments: voxel A lies in the
// first compartment and voxel B in the second.
type FacePair struct {
	A    int
	B    int
	Axis int
}

var offsets = [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Faces returns every face shared between masks a and b, ordered by the
// index of the lower voxel and then by axis.
func Faces(a, b *field.Mask) []FacePair {
	vol := a.Volume
	var out []FacePair
	for i := 0; i < vol.Size(); i++ {
		inA, inB := a.Bits[i], b.Bits[i]
		if !inA && !inB {
			continue
		}
		x, y, z := vol.Coords(i)
		for axis, d := range offsets {
			nx, ny, nz := x+d[0], y+d[1], z+d[2]
			if !vol.Contains(nx, ny, nz) {
				continue
			}
			j := vol.Index(nx, ny, nz)
			switch {
			case inA && b.Bits[j]:
				out = append(out, FacePair{A: i, B: j, Axis: axis})
			case inB && a.Bits[j]:
				out = append(out, FacePair{A: j, B: i, Axis: axis})
			}
		}
	}
	return out
}
