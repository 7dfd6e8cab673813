package convert

import (
	"fmt"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// Operand adapts an IR value or a raw constant array into a lowered-graph
// operand: a named identifier plus the coercions that bridge container
// kinds into the target operator set.
type Operand struct {
	b     *GraphBuilder
	name  string
	value *ir.Value // nil for array-backed and placeholder operands
}

// Name returns the operand's output identifier.
func (o *Operand) Name() string { return o.name }

// Operand wraps an IR value, resolving to its already-assigned identifier.
// No new identifier is minted and no node is emitted.
func (b *GraphBuilder) Operand(v *ir.Value) *Operand {
	return &Operand{b: b, name: b.ctx.names.valueName(v), value: v}
}

// ArrayOperand wraps a raw constant array. A registered trained parameter
// binds to its reserved identifier and is recorded as an initializer on
// first touch. Any other array gets a fresh identifier derived from base:
// as an inline constant-producing node when constant is true, as a
// registered initializer otherwise.
func (b *GraphBuilder) ArrayOperand(a *ir.Array, base string, constant bool) (*Operand, error) {
	if name, ok := b.ctx.params.lookup(a); ok {
		if !b.ctx.inits.has(name) {
			if _, err := b.registerInitializer(a, name); err != nil {
				return nil, err
			}
		}
		return &Operand{b: b, name: name}, nil
	}

	name := b.ctx.names.fresh(base)
	if constant {
		// Inline constants keep their full payload width.
		b.Emit(onnx.OpConstant, nil, []string{name}, name,
			onnx.AttrTensor("value", onnx.FromArray(a, name)))
		return &Operand{b: b, name: name}, nil
	}
	if _, err := b.registerInitializer(a, name); err != nil {
		return nil, err
	}
	return &Operand{b: b, name: name}, nil
}

// placeholderOperand mints a fresh unbound tensor of the given element
// type, for use as a side-output of a helper node.
func (b *GraphBuilder) placeholderOperand(dt onnx.DataType, base string) (*Operand, error) {
	name, err := b.Scratch(base, dt)
	if err != nil {
		return nil, err
	}
	return &Operand{b: b, name: name}, nil
}

// sequenceOperand mints a fresh sequence placeholder.
func (b *GraphBuilder) sequenceOperand(base string) (*Operand, error) {
	name := b.ctx.names.fresh(base)
	if _, err := b.newSequence(name, onnx.Float); err != nil {
		return nil, err
	}
	return &Operand{b: b, name: name}, nil
}

// CreateSequence coerces the operand into a sequence-shaped operand.
//
// A List is already sequence-shaped. A Tuple whose every element is
// statically known is materialized: one constant operand per element plus
// a sequence-construction node, returning the fresh sequence. A Tuple with
// runtime elements is returned as-is, deferring to the point of use. Any
// other operand kind is a structural failure.
func (o *Operand) CreateSequence() (*Operand, error) {
	if o.value == nil {
		return nil, fmt.Errorf("%w: sequence coercion of operand %q with no value", ErrStructural, o.name)
	}
	switch o.value.Kind {
	case ir.KindList:
		return o, nil

	case ir.KindTuple:
		if !o.value.AllConst() {
			return o, nil
		}
		ret, err := o.b.sequenceOperand(o.name + "/create_sequence")
		if err != nil {
			return nil, err
		}
		inputs := make([]string, 0, len(o.value.Elements))
		for _, e := range o.value.Elements {
			arr, err := ir.FromConstant(e.Const)
			if err != nil {
				return nil, err
			}
			c, err := o.b.ArrayOperand(arr, o.name+"/c", true)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, c.name)
		}
		o.b.Emit(onnx.OpSequenceCreate, inputs, []string{ret.name}, "create_sequence")
		return ret, nil

	default:
		return nil, fmt.Errorf("%w: sequence coercion of %s operand %q", ErrStructural, o.value.Kind, o.name)
	}
}

// CreateTensor coerces the operand into a tensor-shaped operand.
//
// A Tuple with known element structure lowers to one rank-raising node per
// element joined by a concatenation along a new leading axis. A List
// lowers to a single stack node. Tensor and Number operands are already
// tensor-shaped. Anything else, including a Tuple with unknown structure,
// is a structural failure.
func (o *Operand) CreateTensor() (*Operand, error) {
	if o.value == nil {
		return nil, fmt.Errorf("%w: tensor coercion of operand %q with no value", ErrStructural, o.name)
	}
	switch o.value.Kind {
	case ir.KindTuple:
		if !o.value.HasConst() {
			return nil, fmt.Errorf("%w: tensor coercion of tuple %q with unknown elements", ErrStructural, o.name)
		}
		ret, err := o.b.placeholderOperand(onnx.Float, o.name+"/tensor")
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(o.value.Elements))
		for _, e := range o.value.Elements {
			var c *Operand
			if e.HasConst() {
				arr, err := ir.FromConstant(e.Const)
				if err != nil {
					return nil, err
				}
				if c, err = o.b.ArrayOperand(arr, o.name+"/c", true); err != nil {
					return nil, err
				}
			} else {
				c = o.b.Operand(e)
			}
			part, err := o.b.emitScratch(onnx.OpUnsqueeze, []string{c.name}, "create_tensor",
				onnx.AttrInts("axes", []int64{0}))
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		o.b.Emit(onnx.OpConcat, parts, []string{ret.name}, "create_tensor",
			onnx.AttrInt("axis", 0))
		return ret, nil

	case ir.KindList:
		ret, err := o.b.placeholderOperand(onnx.Float, o.name+"/tensor")
		if err != nil {
			return nil, err
		}
		o.b.Emit(onnx.OpSequenceStack, []string{o.name}, []string{ret.name}, "create_tensor")
		return ret, nil

	case ir.KindTensor, ir.KindNumber:
		return o, nil

	default:
		return nil, fmt.Errorf("%w: tensor coercion of %s operand %q", ErrStructural, o.value.Kind, o.name)
	}
}
