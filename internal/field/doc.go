// Package field implements voxel fields over a fixed 3D grid.
//
// A [Volume] fixes the grid dimensions (width, height, depth). Voxels are
// stored row-major with x varying fastest, then y, then z. Row y = 0 is the
// top row of the source image.
//
// [Mask] marks the voxels of one compartment and [Field] holds one scalar
// per voxel. [Array] is an externally supplied N-dimensional array that must
// match the grid before it can become a Field.
package field
