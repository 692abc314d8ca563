// Package model holds the biochemical model of a spatial simulation:
// compartments carved out of a voxel geometry, the membranes between them,
// the species and reactions they host, and global parameters.
//
// Every entity has an immutable ID, derived once from its initial name,
// and a mutable display name. Expressions refer to entities by ID, so a
// rename never invalidates a kinetic law. Name lookups reflect renames
// immediately.
//
// Mutations validate their input before touching any state: a failed call
// leaves the model exactly as it was. Concurrent use of a Model is not
// supported; callers serialize access.
package model
