// Package pixel implements the finite-difference simulation backend. It
// integrates every non-constant species directly on the voxels of its
// compartment:
//
//	dc/dt = div(D grad c) + sum of reaction rates
//
// Diffusion uses the standard seven point stencil with face-averaged
// coefficients and zero flux across the grid edge and compartment
// boundaries. Membrane reactions move mass across the shared voxel faces.
//
// Each evaluation of the right-hand side is split across the workers of a
// [dynamo.Pool] by voxel range and joined before the integrator continues.
package pixel
