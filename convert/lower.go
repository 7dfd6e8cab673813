package convert

import (
	"fmt"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// lowerGraph lowers one IR graph into its serialized form, recursing into
// control-flow subgraphs with nested builders. Every operand the graph
// touches is declared up front; constants without a generator are
// materialized before any node is lowered.
func (c *context) lowerGraph(g *ir.Graph, parent *GraphBuilder, topLevel bool) (*onnx.Graph, error) {
	b := newGraphBuilder(c, parent)

	if err := b.declareAll(g.Inputs); err != nil {
		return nil, err
	}
	for _, n := range g.Nodes {
		switch n.Op.(type) {
		case ir.Return, ir.Invalid:
			continue
		}
		if err := b.declareAll(n.Inputs); err != nil {
			return nil, err
		}
		if err := b.declareAll(n.Outputs); err != nil {
			return nil, err
		}
	}
	if err := b.declareAll(g.Outputs); err != nil {
		return nil, err
	}

	for _, n := range g.Nodes {
		if err := c.lowerNode(b, n); err != nil {
			return nil, err
		}
	}

	if err := b.declareInputs(g.Inputs); err != nil {
		return nil, err
	}
	if err := b.declareOutputs(g.Outputs); err != nil {
		return nil, err
	}
	return b.finalize(g.Name, topLevel), nil
}

// declareAll declares the operand for every not-yet-declared value.
// Runtime values get placeholders; constants without a generator are
// materialized, numbers as inline constant nodes and everything else as
// initializers.
func (b *GraphBuilder) declareAll(values []*ir.Value) error {
	for _, v := range values {
		name := b.ctx.names.valueName(v)
		if b.declared(name) {
			continue
		}
		if v.Generator != nil || !v.AllConst() {
			if err := b.declareValue(v); err != nil {
				return err
			}
			continue
		}
		if v.Kind == ir.KindNumber {
			if err := b.declareValue(v); err != nil {
				return err
			}
			arr, err := ir.FromConstant(v.Const)
			if err != nil {
				return err
			}
			arr = b.ctx.narrow(arr)
			b.Emit(onnx.OpConstant, nil, []string{name}, "",
				onnx.AttrTensor("value", onnx.FromArray(arr, name)))
			continue
		}
		if err := b.constTensorForValue(v); err != nil {
			return err
		}
	}
	return nil
}

// lowerNode translates one IR node into its lowered operator sequence.
// The op switch is exhaustive over the closed variant set; an unlisted
// variant is a structural failure.
func (c *context) lowerNode(b *GraphBuilder, n *ir.Node) error {
	loc := n.Loc.String()
	switch op := n.Op.(type) {
	case ir.Copy:
		b.Emit(onnx.OpIdentity,
			[]string{c.names.valueName(op.Value)},
			[]string{c.names.valueName(n.Outputs[0])}, "")
		return nil

	case ir.BinOp:
		return c.lowerBinary(b, n, op.Kind, op.Left, op.Right)

	case ir.AugAssign:
		return c.lowerBinary(b, n, op.Kind, op.Target, op.Value)

	case ir.UnaryOp:
		return c.lowerUnary(b, n, op)

	case ir.Compare:
		return c.lowerCompare(b, n, op)

	case ir.GetItem:
		return c.lowerGetItem(b, n, op.Target, op.Indexes, nil)

	case ir.Slice:
		return c.lowerSlice(b, n, op)

	case ir.Call:
		return c.lowerCall(b, n, op)

	case ir.If:
		return c.lowerIf(b, n, op)

	case ir.For:
		return c.lowerLoop(b, n, op.Iter, op.Body, op.Carried, loc)

	case ir.Listcomp:
		// A comprehension is a loop whose node carries no source tag.
		return c.lowerLoop(b, n, op.Iter, op.Body, op.Carried, "")

	case ir.ForGenerator:
		return c.lowerGetItem(b, n, op.Iter, []*ir.Value{op.Counter}, nil)

	case ir.Convert:
		return c.lowerConvert(b, n, op)

	case ir.Generate:
		return c.lowerGenerate(b, n, op)

	case ir.Return, ir.Invalid:
		return nil

	default:
		return fmt.Errorf("%w: no lowering for %s node %s", ErrStructural, ir.OpName(n.Op), loc)
	}
}

// binOpName maps an arithmetic kind to its operator tag. Unknown kinds
// default to addition. Only addition has a sequence-generic variant.
func binOpName(k ir.BinOpKind, sequence bool) string {
	switch k {
	case ir.BinSub:
		return onnx.OpSub
	case ir.BinMul:
		return onnx.OpMul
	default:
		if sequence {
			return onnx.OpGenericAdd
		}
		return onnx.OpAdd
	}
}

func isSequenceKind(v *ir.Value) bool {
	return v.Kind == ir.KindList || v.Kind == ir.KindTuple
}

// lowerBinary handles BinOp and AugAssign. When either operand is a
// container, both must be: the op is replaced by its sequence-generic
// variant over coerced sequence operands.
func (c *context) lowerBinary(b *GraphBuilder, n *ir.Node, kind ir.BinOpKind, left, right *ir.Value) error {
	out := c.names.valueName(n.Outputs[0])

	if isSequenceKind(left) || isSequenceKind(right) {
		if !isSequenceKind(left) || !isSequenceKind(right) {
			return fmt.Errorf("%w: %s mixes sequence and scalar operands", ErrStructural, ir.OpName(n.Op))
		}
		seqLeft, err := b.Operand(left).CreateSequence()
		if err != nil {
			return err
		}
		seqRight, err := b.Operand(right).CreateSequence()
		if err != nil {
			return err
		}
		b.Emit(binOpName(kind, true),
			[]string{seqLeft.name, seqRight.name}, []string{out}, "")
		return nil
	}

	b.Emit(binOpName(kind, false),
		[]string{c.names.valueName(left), c.names.valueName(right)},
		[]string{out}, "")
	return nil
}

// lowerUnary lowers +x and -x as zero-plus and zero-minus against a minted
// constant zero, and not-x as a boolean negation.
func (c *context) lowerUnary(b *GraphBuilder, n *ir.Node, op ir.UnaryOp) error {
	out := c.names.valueName(n.Outputs[0])
	operand := c.names.valueName(op.Operand)

	switch op.Kind {
	case ir.UnaryPlus, ir.UnaryNeg:
		zero, err := b.ArrayOperand(ir.Scalar(0), c.names.nodeName(n)+"/Zero", true)
		if err != nil {
			return err
		}
		tag := onnx.OpAdd
		if op.Kind == ir.UnaryNeg {
			tag = onnx.OpSub
		}
		b.Emit(tag, []string{zero.name, operand}, []string{out}, "")
		return nil

	case ir.UnaryNot:
		b.Emit(onnx.OpNot, []string{operand}, []string{out}, "")
		return nil

	default:
		return fmt.Errorf("%w: unary op kind %d", ErrStructural, op.Kind)
	}
}

// lowerCompare maps the six comparison kinds onto the equal/greater/less/
// identity primitives. The negated kinds lower as the corresponding
// positive primitive into a scratch tensor followed by a boolean negation,
// keeping the target operator surface minimal.
func (c *context) lowerCompare(b *GraphBuilder, n *ir.Node, op ir.Compare) error {
	var tag string
	var negate bool
	switch op.Kind {
	case ir.CmpEq:
		tag = onnx.OpEqual
	case ir.CmpNotEq:
		tag, negate = onnx.OpEqual, true
	case ir.CmpGt:
		tag = onnx.OpGreater
	case ir.CmpGtE:
		tag, negate = onnx.OpLess, true
	case ir.CmpLt:
		tag = onnx.OpLess
	case ir.CmpLtE:
		tag, negate = onnx.OpGreater, true
	case ir.CmpIs:
		tag = onnx.OpGenericIs
	case ir.CmpIsNot:
		tag, negate = onnx.OpGenericIs, true
	default:
		return fmt.Errorf("%w: comparison kind %d", ErrStructural, op.Kind)
	}

	inputs := []string{c.names.valueName(op.Left), c.names.valueName(op.Right)}
	out := c.names.valueName(n.Outputs[0])

	if !negate {
		b.Emit(tag, inputs, []string{out}, "")
		return nil
	}
	temp, err := b.Scratch(out+"/NotTemp", onnx.Bool)
	if err != nil {
		return err
	}
	b.Emit(tag, inputs, []string{temp}, "")
	b.Emit(onnx.OpNot, []string{temp}, []string{out}, "")
	return nil
}

// lowerGetItem handles single- and multi-index access; ForGenerator's
// per-iteration fetch routes here with the loop counter as the index.
// Sequence targets with one index use the dynamic positional lookup;
// everything else uses the generic slicing primitive with one "plain
// index" spec per index. sliceSpecs overrides the specs when non-nil.
func (c *context) lowerGetItem(b *GraphBuilder, n *ir.Node, target *ir.Value, indexes []*ir.Value, sliceSpecs []int64) error {
	out := c.names.valueName(n.Outputs[0])
	targetName := c.names.valueName(target)

	if len(indexes) == 1 && target.IsSequence() {
		b.Emit(onnx.OpSequenceLookup,
			[]string{targetName, c.names.valueName(indexes[0])},
			[]string{out}, "")
		return nil
	}

	inputs := make([]string, 0, len(indexes)+1)
	inputs = append(inputs, targetName)
	specs := sliceSpecs
	if specs == nil {
		specs = make([]int64, len(indexes))
		for i := range specs {
			specs[i] = 1
		}
	}
	for _, idx := range indexes {
		inputs = append(inputs, c.names.valueName(idx))
	}
	b.Emit(onnx.OpGetItem, inputs, []string{out}, "",
		onnx.AttrInts("slice_specs", specs))
	return nil
}

// lowerSlice handles range access: sequence targets use the sequence-slice
// primitive, tensor targets the generic slicing primitive with the per-axis
// specs carried on the node.
func (c *context) lowerSlice(b *GraphBuilder, n *ir.Node, op ir.Slice) error {
	if isSequenceKind(op.Target) {
		inputs := make([]string, 0, len(op.Indices)+1)
		inputs = append(inputs, c.names.valueName(op.Target))
		for _, idx := range op.Indices {
			inputs = append(inputs, c.names.valueName(idx))
		}
		b.Emit(onnx.OpSequenceGetSlice, inputs,
			[]string{c.names.valueName(n.Outputs[0])}, "")
		return nil
	}
	return c.lowerGetItem(b, n, op.Target, op.Indices, op.SliceSpecs)
}

// lowerCall dispatches built-in calls. A callee carrying a base-function
// override bypasses built-in dispatch and defers to a registered handler;
// framework-layer calls defer to the handler keyed by the layer type.
func (c *context) lowerCall(b *GraphBuilder, n *ir.Node, op ir.Call) error {
	loc := n.Loc.String()
	fn := op.Fn

	if fn.BaseName != "" {
		conv, ok := c.opts.Functions[fn.BaseName]
		if !ok {
			return fmt.Errorf("%w: no converter registered for function %q", ErrStructural, fn.BaseName)
		}
		return conv(b, n)
	}

	switch fn.Builtin {
	case ir.BuiltinAppend:
		b.Emit(onnx.OpSequenceAppend,
			c.valueNames(n.Inputs), c.valueNames(n.Outputs), loc)
		return nil

	case ir.BuiltinShape:
		out := c.names.valueName(n.Outputs[0])
		temp, err := b.Scratch(out+"/ShapeTemp", onnx.Int32)
		if err != nil {
			return err
		}
		b.Emit(onnx.OpShape, []string{c.names.valueName(n.Inputs[0])}, []string{temp}, loc)
		b.Emit(onnx.OpSequenceSeparate, []string{temp}, []string{out}, loc)
		return nil

	case ir.BuiltinSize:
		b.Emit(onnx.OpSize,
			[]string{c.names.valueName(n.Inputs[0])},
			[]string{c.names.valueName(n.Outputs[0])}, loc)
		return nil

	case ir.BuiltinCeil:
		b.Emit(onnx.OpCeil,
			[]string{c.names.valueName(n.Inputs[0])},
			[]string{c.names.valueName(n.Outputs[0])}, loc)
		return nil

	case ir.BuiltinLayer:
		conv, ok := c.opts.Layers[fn.LayerType]
		if !ok {
			return fmt.Errorf("%w: no converter registered for layer type %q", ErrStructural, fn.LayerType)
		}
		return conv(b, n)

	default:
		return fmt.Errorf("%w: call to unknown builtin %q", ErrStructural, fn.Name)
	}
}

// lowerIf lowers both branch bodies to nested graphs, then emits a single
// conditional whose inputs are the condition followed by every value
// threaded into either branch.
func (c *context) lowerIf(b *GraphBuilder, n *ir.Node, op ir.If) error {
	thenGraph, err := c.lowerGraph(op.Then, b, false)
	if err != nil {
		return err
	}
	elseGraph, err := c.lowerGraph(op.Else, b, false)
	if err != nil {
		return err
	}

	inputs := make([]string, 0, len(op.Carried)+1)
	inputs = append(inputs, c.names.valueName(op.Cond))
	for _, v := range op.Carried {
		inputs = append(inputs, c.names.valueName(v))
	}
	b.Emit(onnx.OpIf, inputs, c.valueNames(n.Outputs), "",
		onnx.AttrGraph("then_branch", thenGraph),
		onnx.AttrGraph("else_branch", elseGraph))
	return nil
}

// lowerLoop lowers For and Listcomp: a dynamic length query over the
// iterated operand feeding a bounded loop. The loop's second input, the
// termination condition, is omitted; the carried state follows the
// iterated operand.
func (c *context) lowerLoop(b *GraphBuilder, n *ir.Node, iter *ir.Value, body *ir.Graph, carried []*ir.Value, loopTag string) error {
	iterName := c.names.valueName(iter)

	length, err := b.placeholderOperand(onnx.Int64, iterName+"/Len")
	if err != nil {
		return err
	}
	b.Emit(onnx.OpGenericLen, []string{iterName}, []string{length.name}, n.Loc.String())

	bodyGraph, err := c.lowerGraph(body, b, false)
	if err != nil {
		return err
	}

	inputs := make([]string, 0, len(carried)+3)
	inputs = append(inputs, length.name, "", iterName)
	for _, v := range carried {
		inputs = append(inputs, c.names.valueName(v))
	}
	b.Emit(onnx.OpLoop, inputs, c.valueNames(n.Outputs), loopTag,
		onnx.AttrGraph("body", bodyGraph))
	return nil
}

// lowerConvert handles explicit container conversions. Only list-of-list
// is implemented; it degenerates to an identity load.
func (c *context) lowerConvert(b *GraphBuilder, n *ir.Node, op ir.Convert) error {
	if op.Class != ir.ConvertList {
		return fmt.Errorf("%w: conversion class %d", ErrUnsupported, op.Class)
	}
	if op.Value.Kind != ir.KindList {
		return fmt.Errorf("%w: list conversion of %s value", ErrUnsupported, op.Value.Kind)
	}
	b.Emit(onnx.OpIdentity,
		[]string{c.names.valueName(n.Inputs[0])},
		[]string{c.names.valueName(n.Outputs[0])}, n.Loc.String())
	return nil
}

// lowerGenerate dispatches container and array construction. Several
// recipes fence off keyword configurations that have no lowering; those
// abort before any node for the construct is emitted.
func (c *context) lowerGenerate(b *GraphBuilder, n *ir.Node, op ir.Generate) error {
	loc := n.Loc.String()
	out := c.names.valueName(n.Outputs[0])

	switch op.Class {
	case ir.GenRange:
		b.Emit(onnx.OpSequenceRange, c.valueNames(n.Inputs), []string{out}, loc)
		return nil

	case ir.GenArray:
		return c.lowerGenerateArray(b, n, op)

	case ir.GenZeros:
		dt, err := c.attrDtype(op.Args.Get("dtype"), n.Loc)
		if err != nil {
			return err
		}
		order, err := c.attrStrDefault(op.Args.Get("order"), n.Loc, "C")
		if err != nil {
			return err
		}
		if order != "C" {
			return fmt.Errorf("%w: zeros with order %q", ErrUnsupported, order)
		}
		shape := op.Args.Get("shape")
		if shape == nil {
			return fmt.Errorf("%w: zeros without a shape argument", ErrStructural)
		}
		shapeTensor, err := b.Operand(shape).CreateTensor()
		if err != nil {
			return err
		}
		b.Emit(onnx.OpConstantFill, []string{shapeTensor.name}, []string{out}, loc,
			onnx.AttrInt("input_as_shape", 1),
			onnx.AttrInt("dtype", int64(zerosDataType(dt))))
		return nil

	case ir.GenFull:
		return c.lowerGenerateFull(b, n, op)

	case ir.GenTuple, ir.GenList:
		b.Emit(onnx.OpSequenceCreate, c.valueNames(n.Inputs), []string{out}, loc)
		return nil

	default:
		return fmt.Errorf("%w: generate class %d", ErrStructural, op.Class)
	}
}

// zerosDataType is the element type a zeros construct fills with when no
// dtype keyword is given: double, the source framework's default.
func zerosDataType(dt ir.Dtype) onnx.DataType {
	if dt == ir.DtypeUnknown {
		return onnx.Double
	}
	return onnx.DataTypeOf(dt)
}

func (c *context) lowerGenerateArray(b *GraphBuilder, n *ir.Node, op ir.Generate) error {
	loc := n.Loc.String()
	out := c.names.valueName(n.Outputs[0])

	dt, err := c.attrDtype(op.Args.Get("dtype"), n.Loc)
	if err != nil {
		return err
	}
	copyArg, err := c.attrBoolDefault(op.Args.Get("copy"), n.Loc, true)
	if err != nil {
		return err
	}
	order, err := c.attrStrDefault(op.Args.Get("order"), n.Loc, "K")
	if err != nil {
		return err
	}
	subok, err := c.attrBoolDefault(op.Args.Get("subok"), n.Loc, false)
	if err != nil {
		return err
	}
	ndmin, err := c.attrIntDefault(op.Args.Get("ndmin"), n.Loc, 0)
	if err != nil {
		return err
	}
	switch {
	case !copyArg:
		return fmt.Errorf("%w: array without copy", ErrUnsupported)
	case order != "K":
		return fmt.Errorf("%w: array with order %q", ErrUnsupported, order)
	case subok:
		return fmt.Errorf("%w: array with subok", ErrUnsupported)
	case ndmin != 0:
		return fmt.Errorf("%w: array with ndmin %d", ErrUnsupported, ndmin)
	}

	src := n.Inputs[0]
	srcName := c.names.valueName(src)
	if src.Kind != ir.KindList {
		b.Emit(onnx.OpIdentity, []string{srcName}, []string{out}, loc)
		return nil
	}
	if dt == ir.DtypeUnknown {
		b.Emit(onnx.OpSequenceStack, []string{srcName}, []string{out}, loc)
		return nil
	}
	casting, err := b.Scratch(out+"/Cast", onnx.Float)
	if err != nil {
		return err
	}
	b.Emit(onnx.OpSequenceStack, []string{srcName}, []string{casting}, loc)
	b.Emit(onnx.OpCast, []string{casting}, []string{out}, loc,
		onnx.AttrInt("to", int64(onnx.DataTypeOf(dt))))
	return nil
}

func (c *context) lowerGenerateFull(b *GraphBuilder, n *ir.Node, op ir.Generate) error {
	loc := n.Loc.String()
	out := c.names.valueName(n.Outputs[0])

	dt, err := c.attrDtype(op.Args.Get("dtype"), n.Loc)
	if err != nil {
		return err
	}
	order, err := c.attrStrDefault(op.Args.Get("order"), n.Loc, "C")
	if err != nil {
		return err
	}
	if order != "C" {
		return fmt.Errorf("%w: full with order %q", ErrUnsupported, order)
	}
	fill := op.Args.Get("fill_value")
	shape := op.Args.Get("shape")
	if fill == nil || shape == nil {
		return fmt.Errorf("%w: full without fill_value or shape", ErrStructural)
	}
	shapeTensor, err := b.Operand(shape).CreateTensor()
	if err != nil {
		return err
	}
	inputs := []string{c.names.valueName(fill), shapeTensor.name}

	if dt == ir.DtypeUnknown {
		b.Emit(onnx.OpExpand, inputs, []string{out}, loc)
		return nil
	}
	temp, err := b.placeholderOperand(onnx.Float, c.names.nodeName(n)+"/Temp")
	if err != nil {
		return err
	}
	b.Emit(onnx.OpExpand, inputs, []string{temp.name}, loc)
	b.Emit(onnx.OpCast, []string{temp.name}, []string{out}, loc,
		onnx.AttrInt("to", int64(onnx.DataTypeOf(dt))))
	return nil
}

func (c *context) valueNames(values []*ir.Value) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = c.names.valueName(v)
	}
	return names
}
