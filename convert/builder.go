package convert

import (
	"fmt"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// GraphBuilder accumulates lowered operator nodes for one IR subgraph and
// manages its declared input/output tensors. Builders for nested subgraphs
// share the conversion context, so identifier uniqueness and parameter
// registration are global across the whole model.
type GraphBuilder struct {
	ctx    *context
	parent *GraphBuilder

	nodes   []*onnx.Node
	inputs  []*onnx.ValueInfo
	outputs []*onnx.ValueInfo
}

func newGraphBuilder(ctx *context, parent *GraphBuilder) *GraphBuilder {
	return &GraphBuilder{ctx: ctx, parent: parent}
}

// Emit appends one lowered operator invocation. Registered layer and
// function converters use it to contribute nodes.
func (b *GraphBuilder) Emit(op string, inputs, outputs []string, name string, attrs ...*onnx.Attribute) *onnx.Node {
	n := onnx.NewNode(op, inputs, outputs, name, attrs...)
	b.nodes = append(b.nodes, n)
	return n
}

// emitScratch appends a node whose single output is a freshly minted
// placeholder tensor and returns the minted identifier, so later nodes can
// reference an intermediate result that is not an IR value.
func (b *GraphBuilder) emitScratch(op string, inputs []string, tag string, attrs ...*onnx.Attribute) (string, error) {
	name := b.ctx.names.fresh(tag + "/" + op + "/Output")
	if _, err := b.newTensor(name, onnx.Float); err != nil {
		return "", err
	}
	b.Emit(op, inputs, []string{name}, tag, attrs...)
	return name, nil
}

// ValueName returns the identifier assigned to an IR value. Registered
// converters use it to wire their nodes to the surrounding graph.
func (b *GraphBuilder) ValueName(v *ir.Value) string {
	return b.ctx.names.valueName(v)
}

// Scratch mints a fresh placeholder tensor of the given element type and
// returns its identifier. Used for intermediate results that are not IR
// values.
func (b *GraphBuilder) Scratch(base string, dt onnx.DataType) (string, error) {
	name := b.ctx.names.fresh(base)
	if _, err := b.newTensor(name, dt); err != nil {
		return "", err
	}
	return name, nil
}

// declared reports whether an operand identifier already has a tensor or
// sequence declaration anywhere in the conversion.
func (b *GraphBuilder) declared(name string) bool {
	_, ok := b.ctx.tensors[name]
	return ok
}

// newTensor declares a placeholder tensor. Identifiers are declared
// exactly once across the whole conversion; a second declaration is a
// programming error.
func (b *GraphBuilder) newTensor(name string, dt onnx.DataType) (*onnx.ValueInfo, error) {
	if b.declared(name) {
		return nil, fmt.Errorf("tensor %q declared twice", name)
	}
	vi := onnx.TensorValueInfo(name, dt)
	b.ctx.tensors[name] = vi
	return vi, nil
}

// newSequence declares a placeholder sequence operand.
func (b *GraphBuilder) newSequence(name string, elem onnx.DataType) (*onnx.ValueInfo, error) {
	if b.declared(name) {
		return nil, fmt.Errorf("sequence %q declared twice", name)
	}
	vi := onnx.SequenceValueInfo(name, elem)
	b.ctx.tensors[name] = vi
	return vi, nil
}

// declareValue declares the placeholder operand for an IR value, deriving
// the element type from the value's declared or inferred dtype. Tensor
// shapes are deliberately left undeclared: the tracer's shape estimation
// is not reliable enough to stamp into the model.
func (b *GraphBuilder) declareValue(v *ir.Value) error {
	name := b.ctx.names.valueName(v)
	switch v.Kind {
	case ir.KindTensor:
		dt := onnx.Float
		if v.Dtype != ir.DtypeUnknown {
			dt = onnx.DataTypeOf(v.Dtype)
		}
		_, err := b.newTensor(name, dt)
		return err

	case ir.KindBool:
		_, err := b.newTensor(name, onnx.Bool)
		return err

	case ir.KindList, ir.KindTuple:
		_, err := b.newSequence(name, onnx.Float)
		return err

	case ir.KindNumber:
		_, err := b.newTensor(name, b.numberDataType(v))
		return err

	default:
		_, err := b.newTensor(name, onnx.Float)
		return err
	}
}

// numberDataType infers the element type of a Number value: the declared
// dtype wins, then the payload's natural width, then float32.
func (b *GraphBuilder) numberDataType(v *ir.Value) onnx.DataType {
	if v.Dtype != ir.DtypeUnknown {
		return onnx.DataTypeOf(v.Dtype)
	}
	if v.Const != nil {
		switch v.Const.Kind {
		case ir.ConstInt:
			return onnx.Int64
		case ir.ConstFloat:
			if b.ctx.opts.FloatRestrict {
				return onnx.Double
			}
			return onnx.Float
		}
	}
	return onnx.Float
}

// registerInitializer records a constant tensor to be attached to the
// top-level graph. Registering the same identifier twice is a programming
// error.
func (b *GraphBuilder) registerInitializer(a *ir.Array, name string) (*onnx.Tensor, error) {
	a = b.ctx.narrow(a)
	tensor := onnx.FromArray(a, name)
	info := onnx.ShapedTensorValueInfo(name, tensor.DataType, a.Shape)
	if b.declared(name) {
		return nil, fmt.Errorf("initializer %q shadows a declared tensor", name)
	}
	if err := b.ctx.inits.add(name, tensor, info); err != nil {
		return nil, err
	}
	b.ctx.tensors[name] = info
	return tensor, nil
}

// constTensorForValue materializes a constant-by-nature graph-interface
// value (a literal number or bool, a None, an unknown) as an initializer.
func (b *GraphBuilder) constTensorForValue(v *ir.Value) error {
	name := b.ctx.names.valueName(v)
	var arr *ir.Array
	switch v.Kind {
	case ir.KindNumber:
		if v.Const == nil {
			arr = zeroArray(v.Dtype)
		} else {
			var err error
			if arr, err = ir.FromConstant(v.Const); err != nil {
				return err
			}
		}

	case ir.KindBool:
		val := v.Const != nil && v.Const.Bool
		arr = ir.BoolScalar(val)

	case ir.KindNone, ir.KindUnknown:
		arr = ir.BoolScalar(false)

	default:
		b.ctx.warnf(ir.Location{}, "unknown constant kind %s for %q, storing float zero", v.Kind, name)
		arr = &ir.Array{Dtype: ir.DtypeFloat32, Floats: []float64{0}}
	}
	_, err := b.registerInitializer(arr, name)
	return err
}

// zeroArray builds a scalar zero of the given dtype; int64 when the dtype
// is unknown, matching the source framework's default integer width.
func zeroArray(dt ir.Dtype) *ir.Array {
	switch dt {
	case ir.DtypeFloat32, ir.DtypeFloat64:
		return &ir.Array{Dtype: dt, Floats: []float64{0}}
	case ir.DtypeBool, ir.DtypeInt32, ir.DtypeInt64:
		return &ir.Array{Dtype: dt, Ints: []int64{0}}
	default:
		return ir.IntScalar(0)
	}
}

// declareInputs binds the graph's declared inputs to already-declared
// operands.
func (b *GraphBuilder) declareInputs(values []*ir.Value) error {
	b.inputs = b.inputs[:0]
	for _, v := range values {
		vi, err := b.lookupInfo(v)
		if err != nil {
			return err
		}
		b.inputs = append(b.inputs, vi)
	}
	return nil
}

// declareOutputs binds the graph's declared outputs to already-declared
// operands.
func (b *GraphBuilder) declareOutputs(values []*ir.Value) error {
	b.outputs = b.outputs[:0]
	for _, v := range values {
		vi, err := b.lookupInfo(v)
		if err != nil {
			return err
		}
		b.outputs = append(b.outputs, vi)
	}
	return nil
}

func (b *GraphBuilder) lookupInfo(v *ir.Value) (*onnx.ValueInfo, error) {
	name := b.ctx.names.valueName(v)
	vi, ok := b.ctx.tensors[name]
	if !ok {
		return nil, fmt.Errorf("operand %q used before declaration", name)
	}
	return vi, nil
}

// finalize produces the sub-graph's serialized form. The top-level graph
// additionally carries every registered initializer, appending each as a
// graph input unless it is already among the declared inputs.
func (b *GraphBuilder) finalize(name string, topLevel bool) *onnx.Graph {
	inputs := append([]*onnx.ValueInfo(nil), b.inputs...)
	var initializers []*onnx.Tensor
	if topLevel {
		declared := make(map[string]bool, len(inputs))
		for _, vi := range inputs {
			declared[vi.Name] = true
		}
		for _, n := range b.ctx.inits.order {
			entry := b.ctx.inits.byName[n]
			initializers = append(initializers, entry.tensor)
			if !declared[n] {
				inputs = append(inputs, entry.info)
			}
		}
	}
	return onnx.NewGraph(name, b.nodes, inputs, b.outputs, initializers)
}
