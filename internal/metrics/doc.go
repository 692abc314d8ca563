// Package metrics summarises simulation snapshots: per-species statistics
// over a compartment, running metrics over a sequence of snapshots, and
// prometheus collectors for solver activity.
package metrics
