// Package dynamo provides the primitives shared by the spatial simulation
// backends.
//
// The package defines:
//
//   - the error taxonomy: [ErrInvalidArgument], [ErrTimeout], [ErrNumerical]
//   - [SimulationError]: a numerical failure annotated with step, time and species
//   - [Pool]: a fixed set of workers that split one time step into disjoint
//     partitions and join them before returning
//   - [Capabilities]: optional outputs a backend can provide
//
// # Thread Safety
//
// A [Pool] may be shared by several solvers, but each call to [Pool.Run] blocks
// until every partition has finished. Nothing else in this package holds
// mutable state.
package dynamo
