// Package geometry describes the voxel grid of a model: its physical
// placement, the colour image it was segmented from, compartment masks and
// the voxel faces shared by adjacent compartments.
package geometry
