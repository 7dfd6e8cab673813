package convert

import (
	"fmt"
	"strings"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// Parameter is one trained parameter of the traced model: its dotted or
// slash-separated path within the model and its constant payload.
type Parameter struct {
	Path  string
	Array *ir.Array
}

// Result is a completed conversion: the serialized model plus every
// recoverable warning raised while lowering. A non-empty warning list
// means sentinel values were substituted somewhere and the model may not
// match the traced semantics exactly.
type Result struct {
	Model    *onnx.Model
	Warnings []Warning
}

// Assemble converts a traced graph into a serialized model.
//
// Parameters are registered first so their identifiers always win
// unsuffixed names. Identifier assignment then runs over the whole graph
// tree, the preprocessor breaks output aliasing (naming the copies it
// mints in a second sweep), and the top-level graph is lowered with every
// touched parameter attached as an initializer-backed input.
//
// The graph is mutated in place by preprocessing. No validation pass runs
// over the produced model.
func Assemble(g *ir.Graph, params []Parameter, opts Options) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrStructural)
	}
	c := newContext(opts)

	for _, p := range params {
		name := paramName(p.Path)
		c.params.register(p.Array, name)
		c.names.reserve(name)
	}

	c.names.assignGraph(g)
	Normalize(g)
	c.names.assignGraph(g)

	graph, err := c.lowerGraph(g, nil, true)
	if err != nil {
		return nil, err
	}
	model := onnx.NewModel(graph, c.opts.Producer, c.opts.ProducerVersion)
	return &Result{Model: model, Warnings: c.warnings}, nil
}

var paramSeparators = strings.NewReplacer("/", "_", ".", "_")

// paramName derives a parameter's output identifier from its model path,
// rewriting path separators to underscores.
func paramName(path string) string {
	return "param" + paramSeparators.Replace(path)
}
