// Package simulate runs a model through time. A Session owns the solver
// state between calls, so a simulation can be continued, and keeps the
// history of snapshots taken at the requested interval boundaries.
//
// A Session is not safe for concurrent Simulate calls.
package simulate
