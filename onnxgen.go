// Package onnxgen converts traced neural-network programs into a portable
// dataflow-graph interchange format.
//
// A symbolic tracer produces an IR graph (package ir) of typed values and
// nodes, with nested subgraphs for conditionals and loops. onnxgen lowers
// that graph node-by-node into the target operator set (package onnx):
// deterministic identifier assignment, constant and trained-parameter
// materialization as initializers, and control flow encoded as nested
// sub-graphs.
//
// Example usage:
//
//	graph, err := ir.Decode(fixture)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := onnxgen.Convert(graph, params)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := result.Model.EncodeYAML()
//
// For control over attribute strictness, float handling and layer
// converters, use ConvertWithOptions with a convert.Options value.
package onnxgen

import (
	"fmt"

	"github.com/gotensor/onnxgen/convert"
	"github.com/gotensor/onnxgen/ir"
)

// Convert converts a traced graph to a serialized model using default
// options.
//
// This is the simplest entry point. For more control use
// ConvertWithOptions, or drive package convert directly.
func Convert(graph *ir.Graph, params []convert.Parameter) (*convert.Result, error) {
	return ConvertWithOptions(graph, params, convert.DefaultOptions())
}

// ConvertWithOptions converts a traced graph to a serialized model with
// custom options.
//
// The conversion pipeline is:
//  1. Register trained parameters, reserving their identifiers
//  2. Assign globally-unique identifiers over the whole graph tree
//  3. Preprocess the graph (break output aliasing with copy nodes)
//  4. Lower every node, recursing into control-flow subgraphs
func ConvertWithOptions(graph *ir.Graph, params []convert.Parameter, opts convert.Options) (*convert.Result, error) {
	result, err := convert.Assemble(graph, params, opts)
	if err != nil {
		return nil, fmt.Errorf("conversion error: %w", err)
	}
	return result, nil
}
