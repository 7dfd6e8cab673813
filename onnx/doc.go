// Package onnx defines the portable dataflow-graph interchange format the
// converter emits: a model wrapping a named graph of typed operator nodes,
// with nested sub-graphs carried as node attributes and trained parameters
// attached as initializer tensors.
//
// The package only models and serializes the format; it does not execute
// or validate graphs.
package onnx
