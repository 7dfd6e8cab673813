// Package ir defines the intermediate representation produced by the
// symbolic tracer for a define-by-run neural-network program.
//
// The IR is a directed graph of typed values connected by operation nodes.
// Control flow (conditionals, loops, comprehensions) is represented as
// nested subgraphs attached to the owning node. The converter in package
// convert consumes this IR read-only, except for the preprocessing step
// which inserts explicit copy nodes.
//
// Values are identified by pointer: the tracer never copies a Value, it
// only references it from the graphs and nodes that use it.
package ir
