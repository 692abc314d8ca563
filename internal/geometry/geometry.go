package geometry

import "github.com/san-kum/spatialsim/internal/field"

// Axis directions, in the order used by face pairs and stencils.
const (
	AxisX = iota
	AxisY
	AxisZ
)

// Geometry places a voxel grid in physical space.
type Geometry struct {
	Volume    field.Volume
	VoxelSize [3]float64
	Origin    [3]float64
}

// New returns a geometry with unit voxels at the origin.
func New(vol field.Volume) Geometry {
	return Geometry{Volume: vol, VoxelSize: [3]float64{1, 1, 1}}
}

// VoxelVolume returns the physical volume of one voxel.
func (g Geometry) VoxelVolume() float64 {
	return g.VoxelSize[0] * g.VoxelSize[1] * g.VoxelSize[2]
}

// FaceArea returns the area of a voxel face normal to axis.
func (g Geometry) FaceArea(axis int) float64 {
	return g.VoxelVolume() / g.VoxelSize[axis]
}

// Position returns the physical coordinates of voxel i. Image rows count
// from the top while physical y counts from the bottom.
func (g Geometry) Position(i int) (x, y, z float64) {
	vx, vy, vz := g.Volume.Coords(i)
	x = g.Origin[0] + float64(vx)*g.VoxelSize[0]
	y = g.Origin[1] + float64(g.Volume.Height-1-vy)*g.VoxelSize[1]
	z = g.Origin[2] + float64(vz)*g.VoxelSize[2]
	return x, y, z
}

// Axes returns the number of axes with more than one voxel layer, treating
// x and y as always present.
func (g Geometry) Axes() int {
	if g.Volume.Depth > 1 {
		return 3
	}
	return 2
}
