// Package convert lowers a traced-program IR graph (package ir) into the
// portable dataflow interchange format (package onnx).
//
// The conversion pipeline is:
//  1. Register trained parameters so their identifiers win naming.
//  2. Assign a globally-unique output identifier to every IR value and
//     node, in a fixed traversal order.
//  3. Preprocess the graph tree: break output/input aliasing and duplicate
//     output positions with explicit copy nodes.
//  4. Lower every node, recursing into control-flow subgraphs, and emit
//     the top-level graph with parameter initializers attached.
//
// All conversion state lives in a per-call context; two conversions never
// share mutable state, so concurrent Assemble calls are safe.
package convert
