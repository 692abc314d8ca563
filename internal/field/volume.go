package field

import "fmt"

// Volume is the shape of a voxel grid.
type Volume struct {
	Width  int
	Height int
	Depth  int
}

// Size returns the number of voxels.
func (v Volume) Size() int {
	return v.Width * v.Height * v.Depth
}

// Empty reports whether the volume contains no voxels.
func (v Volume) Empty() bool {
	return v.Width <= 0 || v.Height <= 0 || v.Depth <= 0
}

// Index returns the flat index of voxel (x, y, z).
func (v Volume) Index(x, y, z int) int {
	return (z*v.Height+y)*v.Width + x
}

// Coords is the inverse of Index.
func (v Volume) Coords(i int) (x, y, z int) {
	x = i % v.Width
	i /= v.Width
	y = i % v.Height
	z = i / v.Height
	return x, y, z
}

// Contains reports whether (x, y, z) lies inside the grid.
func (v Volume) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Width && y < v.Height && z < v.Depth
}

func (v Volume) String() string {
	return fmt.Sprintf("%dx%dx%d", v.Width, v.Height, v.Depth)
}
