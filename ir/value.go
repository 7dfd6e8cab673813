package ir

// ValueKind classifies a traced value.
type ValueKind uint8

const (
	KindUnknown ValueKind = iota
	KindNumber
	KindBool
	KindStr
	KindNone
	KindTensor
	KindList
	KindTuple
	KindRange
)

var valueKindNames = [...]string{
	KindUnknown: "unknown",
	KindNumber:  "number",
	KindBool:    "bool",
	KindStr:     "str",
	KindNone:    "none",
	KindTensor:  "tensor",
	KindList:    "list",
	KindTuple:   "tuple",
	KindRange:   "range",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "invalid"
}

// Value is a typed node in the tracer's value graph.
type Value struct {
	// Name is the identifier the traced program bound the value to.
	// May be empty for intermediate results.
	Name string

	Kind ValueKind

	// Dtype is the declared element type for Tensor and Number values.
	// DtypeUnknown when the tracer could not infer one.
	Dtype Dtype

	// Shape is the declared tensor shape, nil when unknown.
	Shape []int64

	// Const is the statically-known scalar payload, nil for runtime-only
	// values.
	Const *Constant

	// Elements is the statically-known element structure of a Tuple or
	// List value.
	Elements []*Value

	// Generator is the node that produced this value, nil for graph
	// inputs and parameters.
	Generator *Node
}

// ConstKind classifies a constant payload.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstStr
)

// Constant is the statically-known payload of a Value.
type Constant struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// IntConst returns a constant payload holding an integer.
func IntConst(v int64) *Constant { return &Constant{Kind: ConstInt, Int: v} }

// FloatConst returns a constant payload holding a float.
func FloatConst(v float64) *Constant { return &Constant{Kind: ConstFloat, Float: v} }

// BoolConst returns a constant payload holding a bool.
func BoolConst(v bool) *Constant { return &Constant{Kind: ConstBool, Bool: v} }

// StrConst returns a constant payload holding a string.
func StrConst(v string) *Constant { return &Constant{Kind: ConstStr, Str: v} }

// IsSequence reports whether the value is an ordered collection
// (List, Tuple or Range).
func (v *Value) IsSequence() bool {
	return v.Kind == KindList || v.Kind == KindTuple || v.Kind == KindRange
}

// HasConst reports whether the value carries any statically-known payload.
// None values are constant by nature.
func (v *Value) HasConst() bool {
	switch v.Kind {
	case KindNumber, KindBool, KindStr:
		return v.Const != nil
	case KindNone:
		return true
	case KindTuple:
		return v.Elements != nil
	default:
		return false
	}
}

// AllConst reports whether the value and, for tuples, every one of its
// elements is statically known.
func (v *Value) AllConst() bool {
	if v.Kind != KindTuple {
		return v.HasConst()
	}
	if v.Elements == nil {
		return false
	}
	for _, e := range v.Elements {
		if !e.AllConst() {
			return false
		}
	}
	return true
}

// Clone returns a fresh value with the same declared type and payload but
// its own identity and no generator. Used by the preprocessor when it
// synthesizes copy nodes.
func (v *Value) Clone() *Value {
	c := &Value{
		Name:  v.Name,
		Kind:  v.Kind,
		Dtype: v.Dtype,
		Const: v.Const,
	}
	if v.Shape != nil {
		c.Shape = append([]int64(nil), v.Shape...)
	}
	if v.Elements != nil {
		c.Elements = append([]*Value(nil), v.Elements...)
	}
	return c
}
