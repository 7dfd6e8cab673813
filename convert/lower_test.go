package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// mustConvert decodes a graph fixture and converts it with default
// options, failing the test on any error.
func mustConvert(t *testing.T, fixture string) *Result {
	t.Helper()
	g, err := ir.Decode([]byte(fixture))
	require.NoError(t, err)
	result, err := Assemble(g, nil, DefaultOptions())
	require.NoError(t, err)
	return result
}

// convertErr decodes a graph fixture and returns the conversion error.
func convertErr(t *testing.T, fixture string, opts Options) error {
	t.Helper()
	g, err := ir.Decode([]byte(fixture))
	require.NoError(t, err)
	_, err = Assemble(g, nil, opts)
	return err
}

func nodeOps(g *onnx.Graph) []string {
	ops := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ops[i] = n.OpType
	}
	return ops
}

func findNode(t *testing.T, g *onnx.Graph, opType string) *onnx.Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.OpType == opType {
			return n
		}
	}
	t.Fatalf("no %s node in graph %s (have %v)", opType, g.Name, nodeOps(g))
	return nil
}

func TestLowerBinOpElementwise(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: y, kind: tensor, dtype: float32}
  - {id: z, kind: tensor, dtype: float32}
nodes:
  - {op: binop, kind: mul, left: x, right: y, outputs: [z], line: 1}
inputs: [x, y]
outputs: [z]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpMul}, nodeOps(g))
	assert.Equal(t, []string{"x", "y"}, g.Nodes[0].Inputs)
	assert.Equal(t, []string{"z_L1"}, g.Nodes[0].Outputs)
}

func TestLowerBinOpSequenceGeneric(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: ys, kind: list}
  - {id: zs, kind: list}
nodes:
  - {op: binop, kind: add, left: xs, right: ys, outputs: [zs], line: 1}
inputs: [xs, ys]
outputs: [zs]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpGenericAdd}, nodeOps(g))
	assert.Equal(t, []string{"xs", "ys"}, g.Nodes[0].Inputs)
}

func TestLowerBinOpMixedOperandsFails(t *testing.T) {
	err := convertErr(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: y, kind: tensor, dtype: float32}
  - {id: z, kind: tensor}
nodes:
  - {op: binop, kind: add, left: xs, right: y, outputs: [z], line: 1}
inputs: [xs, y]
outputs: [z]
`, DefaultOptions())
	assert.ErrorIs(t, err, ErrStructural)
}

func TestLowerUnaryNeg(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: y, kind: tensor, dtype: float32}
nodes:
  - {op: unary, kind: neg, operand: x, outputs: [y], line: 2}
inputs: [x]
outputs: [y]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpConstant, onnx.OpSub}, nodeOps(g))
	assert.Equal(t, []string{"UnaryOp_L2/Zero"}, g.Nodes[0].Outputs)
	assert.Equal(t, []string{"UnaryOp_L2/Zero", "x"}, g.Nodes[1].Inputs)
}

func TestLowerUnaryNot(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: bool}
  - {id: y, kind: bool}
nodes:
  - {op: unary, kind: not, operand: x, outputs: [y], line: 1}
inputs: [x]
outputs: [y]
`)
	require.Equal(t, []string{onnx.OpNot}, nodeOps(result.Model.Graph))
}

// The comparison kinds and their lowering. Negated kinds lower as the
// positive primitive plus a boolean negation.
var compareLowerings = []struct {
	kind     string
	primary  string
	negated  bool
	expected func(a, b int) bool
}{
	{"eq", onnx.OpEqual, false, func(a, b int) bool { return a == b }},
	{"noteq", onnx.OpEqual, true, func(a, b int) bool { return a != b }},
	{"gt", onnx.OpGreater, false, func(a, b int) bool { return a > b }},
	{"gte", onnx.OpLess, true, func(a, b int) bool { return a >= b }},
	{"lt", onnx.OpLess, false, func(a, b int) bool { return a < b }},
	{"lte", onnx.OpGreater, true, func(a, b int) bool { return a <= b }},
	{"is", onnx.OpGenericIs, false, func(a, b int) bool { return a == b }},
	{"isnot", onnx.OpGenericIs, true, func(a, b int) bool { return a != b }},
}

// evalPrimitive interprets the positive comparison primitives over small
// integers; identity comparison behaves as equality on scalars.
func evalPrimitive(op string, a, b int) bool {
	switch op {
	case onnx.OpEqual, onnx.OpGenericIs:
		return a == b
	case onnx.OpGreater:
		return a > b
	case onnx.OpLess:
		return a < b
	}
	panic("unknown primitive " + op)
}

func TestLowerCompare(t *testing.T) {
	for _, tc := range compareLowerings {
		t.Run(tc.kind, func(t *testing.T) {
			result := mustConvert(t, `
name: main
values:
  - {id: a, kind: tensor, dtype: float32}
  - {id: b, kind: tensor, dtype: float32}
  - {id: c, kind: bool}
nodes:
  - {op: compare, kind: `+tc.kind+`, left: a, right: b, outputs: [c], line: 1}
inputs: [a, b]
outputs: [c]
`)
			g := result.Model.Graph
			if !tc.negated {
				require.Equal(t, []string{tc.primary}, nodeOps(g))
			} else {
				require.Equal(t, []string{tc.primary, onnx.OpNot}, nodeOps(g))
				assert.Equal(t, []string{"c_L1/NotTemp"}, g.Nodes[0].Outputs)
				assert.Equal(t, []string{"c_L1/NotTemp"}, g.Nodes[1].Inputs)
				assert.Equal(t, []string{"c_L1"}, g.Nodes[1].Outputs)
			}

			// The emitted sequence must agree with the direct comparison
			// over the whole truth table.
			for a := 0; a <= 2; a++ {
				for b := 0; b <= 2; b++ {
					got := evalPrimitive(tc.primary, a, b)
					if tc.negated {
						got = !got
					}
					assert.Equal(t, tc.expected(a, b), got, "a=%d b=%d", a, b)
				}
			}
		})
	}
}

func TestLowerGetItemSequenceLookup(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: i, kind: number, dtype: int64}
  - {id: y, kind: tensor}
nodes:
  - {op: getitem, target: xs, indexes: [i], outputs: [y], line: 1}
inputs: [xs, i]
outputs: [y]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpSequenceLookup}, nodeOps(g))
	assert.Equal(t, []string{"xs", "i"}, g.Nodes[0].Inputs)
}

func TestLowerGetItemTensorUsesSliceSpecs(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: i, kind: number, dtype: int64}
  - {id: j, kind: number, dtype: int64}
  - {id: y, kind: tensor}
nodes:
  - {op: getitem, target: x, indexes: [i, j], outputs: [y], line: 1}
inputs: [x, i, j]
outputs: [y]
`)
	g := result.Model.Graph
	n := findNode(t, g, onnx.OpGetItem)
	assert.Equal(t, []string{"x", "i", "j"}, n.Inputs)
	require.Len(t, n.Attributes, 1)
	assert.Equal(t, "slice_specs", n.Attributes[0].Name)
	assert.Equal(t, []int64{1, 1}, n.Attributes[0].Ints)
}

func TestLowerSliceSequence(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: a, kind: number, dtype: int64}
  - {id: b, kind: number, dtype: int64}
  - {id: ys, kind: list}
nodes:
  - {op: slice, target: xs, indexes: [a, b], outputs: [ys], line: 1}
inputs: [xs, a, b]
outputs: [ys]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpSequenceGetSlice}, nodeOps(g))
	assert.Equal(t, []string{"xs", "a", "b"}, g.Nodes[0].Inputs)
}

func TestLowerSliceTensorCarriesSpecs(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: a, kind: number, dtype: int64}
  - {id: b, kind: number, dtype: int64}
  - {id: y, kind: tensor}
nodes:
  - {op: slice, target: x, indexes: [a, b], slice_specs: [2, 1], outputs: [y], line: 1}
inputs: [x, a, b]
outputs: [y]
`)
	n := findNode(t, result.Model.Graph, onnx.OpGetItem)
	assert.Equal(t, []int64{2, 1}, n.Attributes[0].Ints)
}

func TestLowerCallShape(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: s, kind: list}
nodes:
  - {op: call, fn: {name: shape, builtin: shape}, inputs: [x], outputs: [s], line: 3}
inputs: [x]
outputs: [s]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpShape, onnx.OpSequenceSeparate}, nodeOps(g))
	assert.Equal(t, []string{"s_L3/ShapeTemp"}, g.Nodes[0].Outputs)
	assert.Equal(t, []string{"s_L3/ShapeTemp"}, g.Nodes[1].Inputs)
	assert.Equal(t, []string{"s_L3"}, g.Nodes[1].Outputs)
}

func TestLowerCallAppend(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: v, kind: tensor, dtype: float32}
  - {id: ys, kind: list}
nodes:
  - {op: call, fn: {name: append, builtin: append}, inputs: [xs, v], outputs: [ys], line: 1}
inputs: [xs, v]
outputs: [ys]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpSequenceAppend}, nodeOps(g))
	assert.Equal(t, []string{"xs", "v"}, g.Nodes[0].Inputs)
}

func TestLowerCallUnknownBuiltinFails(t *testing.T) {
	err := convertErr(t, `
name: main
values:
  - {id: x, kind: tensor}
  - {id: y, kind: tensor}
nodes:
  - {op: call, fn: {name: mystery}, inputs: [x], outputs: [y], line: 1}
inputs: [x]
outputs: [y]
`, DefaultOptions())
	assert.ErrorIs(t, err, ErrStructural)
}

func TestLowerConvertListIdentity(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: ys, kind: list}
nodes:
  - {op: convert, class: List, value: xs, outputs: [ys], line: 1}
inputs: [xs]
outputs: [ys]
`)
	require.Equal(t, []string{onnx.OpIdentity}, nodeOps(result.Model.Graph))
}

func TestLowerConvertNonListFails(t *testing.T) {
	err := convertErr(t, `
name: main
values:
  - {id: x, kind: tensor}
  - {id: ys, kind: list}
nodes:
  - {op: convert, class: List, value: x, outputs: [ys], line: 1}
inputs: [x]
outputs: [ys]
`, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLowerGenerateRange(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: n, kind: number, dtype: int64}
  - {id: r, kind: range}
nodes:
  - {op: generate, class: range, inputs: [n], outputs: [r], line: 1}
inputs: [n]
outputs: [r]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpSequenceRange}, nodeOps(g))
	assert.Equal(t, []string{"n"}, g.Nodes[0].Inputs)
}

func TestLowerGenerateListCreate(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: a, kind: tensor, dtype: float32}
  - {id: b, kind: tensor, dtype: float32}
  - {id: xs, kind: list}
nodes:
  - {op: generate, class: List, inputs: [a, b], outputs: [xs], line: 1}
inputs: [a, b]
outputs: [xs]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpSequenceCreate}, nodeOps(g))
	assert.Equal(t, []string{"a", "b"}, g.Nodes[0].Inputs)
}

func TestLowerGenerateZeros(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: d0, kind: number, const: 2}
  - {id: d1, kind: number, const: 3}
  - {id: shp, kind: tuple, elements: [d0, d1]}
  - {id: z, kind: tensor}
nodes:
  - {op: generate, class: zeros, args: [{name: shape, value: shp}], outputs: [z], line: 2}
inputs: []
outputs: [z]
`)
	g := result.Model.Graph
	fill := findNode(t, g, onnx.OpConstantFill)
	assert.Equal(t, []string{"shp/tensor"}, fill.Inputs)
	assert.Equal(t, []string{"z_L2"}, fill.Outputs)

	attrs := map[string]*onnx.Attribute{}
	for _, a := range fill.Attributes {
		attrs[a.Name] = a
	}
	require.Contains(t, attrs, "input_as_shape")
	assert.Equal(t, int64(1), *attrs["input_as_shape"].Int)
	require.Contains(t, attrs, "dtype")
	assert.Equal(t, int64(onnx.Double), *attrs["dtype"].Int, "dtype defaults to double")
}

func TestLowerGenerateZerosBadOrderAborts(t *testing.T) {
	err := convertErr(t, `
name: main
values:
  - {id: d0, kind: number, const: 2}
  - {id: shp, kind: tuple, elements: [d0]}
  - {id: ord, kind: str, const: F}
  - {id: z, kind: tensor}
nodes:
  - op: generate
    class: zeros
    args: [{name: shape, value: shp}, {name: order, value: ord}]
    outputs: [z]
    line: 2
inputs: []
outputs: [z]
`, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLowerGenerateFullWithDtypeCasts(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: fv, kind: number, const: 7}
  - {id: d0, kind: number, const: 4}
  - {id: shp, kind: tuple, elements: [d0]}
  - {id: dt, kind: str, const: float32}
  - {id: z, kind: tensor}
nodes:
  - op: generate
    class: full
    args: [{name: fill_value, value: fv}, {name: shape, value: shp}, {name: dtype, value: dt}]
    outputs: [z]
    line: 5
inputs: []
outputs: [z]
`)
	g := result.Model.Graph
	expand := findNode(t, g, onnx.OpExpand)
	cast := findNode(t, g, onnx.OpCast)
	assert.Equal(t, []string{"Generate_L5/Temp"}, expand.Outputs)
	assert.Equal(t, []string{"Generate_L5/Temp"}, cast.Inputs)
	assert.Equal(t, []string{"z_L5"}, cast.Outputs)
	require.Len(t, cast.Attributes, 1)
	assert.Equal(t, int64(onnx.Float), *cast.Attributes[0].Int)
}

func TestLowerGenerateArrayFromList(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: dt, kind: str, const: int32}
  - {id: z, kind: tensor}
nodes:
  - op: generate
    class: array
    inputs: [xs]
    args: [{name: dtype, value: dt}]
    outputs: [z]
    line: 4
inputs: [xs]
outputs: [z]
`)
	g := result.Model.Graph
	stack := findNode(t, g, onnx.OpSequenceStack)
	cast := findNode(t, g, onnx.OpCast)
	assert.Equal(t, []string{"z_L4/Cast"}, stack.Outputs)
	assert.Equal(t, []string{"z_L4/Cast"}, cast.Inputs)
	assert.Equal(t, int64(onnx.Int32), *cast.Attributes[0].Int)
}

func TestLowerGenerateArrayBadKeywordFails(t *testing.T) {
	err := convertErr(t, `
name: main
values:
  - {id: xs, kind: list}
  - {id: nd, kind: number, const: 2}
  - {id: z, kind: tensor}
nodes:
  - op: generate
    class: array
    inputs: [xs]
    args: [{name: ndmin, value: nd}]
    outputs: [z]
    line: 1
inputs: [xs]
outputs: [z]
`, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLowerCopyIdentity(t *testing.T) {
	result := mustConvert(t, `
name: main
values:
  - {id: x, kind: tensor, dtype: float32}
  - {id: y, kind: tensor, dtype: float32}
nodes:
  - {op: copy, value: x, outputs: [y], line: 1}
inputs: [x]
outputs: [y]
`)
	g := result.Model.Graph
	require.Equal(t, []string{onnx.OpIdentity}, nodeOps(g))
}

func TestStrictModeRejectsUnresolvedAttributes(t *testing.T) {
	fixture := `
name: main
values:
  - {id: d0, kind: number, const: 2}
  - {id: shp, kind: tuple, elements: [d0]}
  - {id: dt, kind: str}
  - {id: z, kind: tensor}
nodes:
  - op: generate
    class: zeros
    args: [{name: shape, value: shp}, {name: dtype, value: dt}]
    outputs: [z]
    line: 2
inputs: []
outputs: [z]
`
	opts := DefaultOptions()
	opts.StrictAttributes = true
	err := convertErr(t, fixture, opts)
	assert.ErrorIs(t, err, ErrUnresolvedAttribute)

	// Default mode substitutes a sentinel and records a warning.
	g, err := ir.Decode([]byte(fixture))
	require.NoError(t, err)
	result, err := Assemble(g, nil, DefaultOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}
