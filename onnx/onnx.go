package onnx

import (
	"github.com/gotensor/onnxgen/ir"
)

// DataType is the element type tag of a tensor, following the interchange
// format's numbering.
type DataType int32

const (
	Undefined DataType = 0
	Float     DataType = 1
	Uint8     DataType = 2
	Int8      DataType = 3
	Uint16    DataType = 4
	Int16     DataType = 5
	Int32     DataType = 6
	Int64     DataType = 7
	String    DataType = 8
	Bool      DataType = 9
	Float16   DataType = 10
	Double    DataType = 11
)

// DataTypeOf maps an IR element type to the interchange tag. Unknown
// dtypes default to Float, matching the converter's float32 fallback.
func DataTypeOf(dt ir.Dtype) DataType {
	switch dt {
	case ir.DtypeBool:
		return Bool
	case ir.DtypeInt32:
		return Int32
	case ir.DtypeInt64:
		return Int64
	case ir.DtypeFloat64:
		return Double
	default:
		return Float
	}
}

// Model is a complete serialized conversion result.
type Model struct {
	ProducerName    string `yaml:"producer_name" json:"producer_name"`
	ProducerVersion string `yaml:"producer_version" json:"producer_version"`
	Graph           *Graph `yaml:"graph" json:"graph"`
}

// Graph is one (sub-)graph: a flat node list plus its declared interface.
// Initializers are only populated on the top-level graph.
type Graph struct {
	Name         string       `yaml:"name" json:"name"`
	Nodes        []*Node      `yaml:"nodes" json:"nodes"`
	Inputs       []*ValueInfo `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs      []*ValueInfo `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Initializers []*Tensor    `yaml:"initializers,omitempty" json:"initializers,omitempty"`
}

// Node is one lowered operator invocation. An empty string in Inputs
// denotes an omitted optional input.
type Node struct {
	OpType     string       `yaml:"op_type" json:"op_type"`
	Name       string       `yaml:"name,omitempty" json:"name,omitempty"`
	Inputs     []string     `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs    []string     `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Attributes []*Attribute `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Attribute is one operator-specific named attribute. Exactly one payload
// field is set.
type Attribute struct {
	Name   string   `yaml:"name" json:"name"`
	Int    *int64   `yaml:"i,omitempty" json:"i,omitempty"`
	Ints   []int64  `yaml:"ints,omitempty" json:"ints,omitempty"`
	Float  *float64 `yaml:"f,omitempty" json:"f,omitempty"`
	Str    string   `yaml:"s,omitempty" json:"s,omitempty"`
	Tensor *Tensor  `yaml:"t,omitempty" json:"t,omitempty"`
	Graph  *Graph   `yaml:"g,omitempty" json:"g,omitempty"`
}

// ValueInfo declares a named tensor or sequence operand.
type ValueInfo struct {
	Name string    `yaml:"name" json:"name"`
	Type *TypeInfo `yaml:"type,omitempty" json:"type,omitempty"`
}

// TypeInfo describes an operand type; exactly one field is set.
type TypeInfo struct {
	Tensor   *TensorTypeInfo   `yaml:"tensor_type,omitempty" json:"tensor_type,omitempty"`
	Sequence *SequenceTypeInfo `yaml:"sequence_type,omitempty" json:"sequence_type,omitempty"`
}

// TensorTypeInfo is a tensor operand type. Dims is nil when the shape is
// unknown at conversion time.
type TensorTypeInfo struct {
	ElemType DataType `yaml:"elem_type" json:"elem_type"`
	Dims     []int64  `yaml:"dims,omitempty" json:"dims,omitempty"`
}

// SequenceTypeInfo is a dynamically-sized ordered collection of tensors.
type SequenceTypeInfo struct {
	ElemType DataType `yaml:"elem_type" json:"elem_type"`
}

// Tensor is a constant tensor payload. Floats carries float element data,
// Ints everything else (bool as 0/1).
type Tensor struct {
	Name     string    `yaml:"name" json:"name"`
	DataType DataType  `yaml:"data_type" json:"data_type"`
	Dims     []int64   `yaml:"dims,omitempty" json:"dims,omitempty"`
	Floats   []float64 `yaml:"float_data,omitempty" json:"float_data,omitempty"`
	Ints     []int64   `yaml:"int_data,omitempty" json:"int_data,omitempty"`
}

// NewNode builds an operator node.
func NewNode(opType string, inputs, outputs []string, name string, attrs ...*Attribute) *Node {
	return &Node{
		OpType:     opType,
		Name:       name,
		Inputs:     inputs,
		Outputs:    outputs,
		Attributes: attrs,
	}
}

// NewGraph builds a (sub-)graph.
func NewGraph(name string, nodes []*Node, inputs, outputs []*ValueInfo, initializers []*Tensor) *Graph {
	return &Graph{
		Name:         name,
		Nodes:        nodes,
		Inputs:       inputs,
		Outputs:      outputs,
		Initializers: initializers,
	}
}

// NewModel wraps a top-level graph with producer metadata.
func NewModel(graph *Graph, producerName, producerVersion string) *Model {
	return &Model{
		ProducerName:    producerName,
		ProducerVersion: producerVersion,
		Graph:           graph,
	}
}

// TensorValueInfo declares a tensor operand of the given element type and
// unknown shape.
func TensorValueInfo(name string, dt DataType) *ValueInfo {
	return &ValueInfo{Name: name, Type: &TypeInfo{Tensor: &TensorTypeInfo{ElemType: dt}}}
}

// SequenceValueInfo declares a sequence-of-tensor operand.
func SequenceValueInfo(name string, elem DataType) *ValueInfo {
	return &ValueInfo{Name: name, Type: &TypeInfo{Sequence: &SequenceTypeInfo{ElemType: elem}}}
}

// ShapedTensorValueInfo declares a tensor operand with a known shape; used
// for initializer-backed inputs where the payload fixes the shape.
func ShapedTensorValueInfo(name string, dt DataType, dims []int64) *ValueInfo {
	return &ValueInfo{Name: name, Type: &TypeInfo{Tensor: &TensorTypeInfo{ElemType: dt, Dims: dims}}}
}

// FromArray converts a constant IR array to a tensor payload.
func FromArray(a *ir.Array, name string) *Tensor {
	t := &Tensor{
		Name:     name,
		DataType: DataTypeOf(a.Dtype),
		Dims:     a.Shape,
	}
	if a.Dtype.IsFloat() || a.Dtype == ir.DtypeUnknown {
		t.Floats = a.Floats
	} else {
		t.Ints = a.Ints
	}
	return t
}

// AttrInt builds an integer attribute.
func AttrInt(name string, v int64) *Attribute {
	return &Attribute{Name: name, Int: &v}
}

// AttrInts builds an integer-list attribute.
func AttrInts(name string, vs []int64) *Attribute {
	return &Attribute{Name: name, Ints: vs}
}

// AttrFloat builds a float attribute.
func AttrFloat(name string, v float64) *Attribute {
	return &Attribute{Name: name, Float: &v}
}

// AttrStr builds a string attribute.
func AttrStr(name, v string) *Attribute {
	return &Attribute{Name: name, Str: v}
}

// AttrTensor builds a constant-tensor attribute.
func AttrTensor(name string, t *Tensor) *Attribute {
	return &Attribute{Name: name, Tensor: t}
}

// AttrGraph builds a nested sub-graph attribute.
func AttrGraph(name string, g *Graph) *Attribute {
	return &Attribute{Name: name, Graph: g}
}
