// Package fem implements the finite-element simulation backend.
//
// Each compartment is meshed from its voxels: two triangles per pixel for
// a single slice, six Kuhn tetrahedra per voxel otherwise. Concentrations
// are piecewise linear on the mesh. Diffusion is integrated implicitly
// (backward Euler with a lumped mass matrix, solved by preconditioned
// conjugate gradients) and reactions explicitly at the nodes.
//
// Voxel fields are interpolated onto the nodes on entry (a node takes the
// mean of its neighbouring voxels) and sampled back for reporting (a voxel
// takes the mean of its corner nodes). The backend does not record dc/dt.
package fem
