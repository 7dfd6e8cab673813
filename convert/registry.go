package convert

import "github.com/gotensor/onnxgen/ir"

// LayerConverter lowers a call to a framework layer. Implementations emit
// nodes through the builder; trained parameters the layer owns are bound
// with ArrayOperand, which resolves them to their registered identifiers.
type LayerConverter func(b *GraphBuilder, n *ir.Node) error

// FunctionConverter lowers a call to a framework function when the callee
// declares a base-function override, bypassing built-in dispatch.
type FunctionConverter func(b *GraphBuilder, n *ir.Node) error
