package ir

import "fmt"

// Array is a dense numeric constant with an explicit dtype and shape.
// It carries constant tensors through the converter: literal payloads,
// zero scratch values and trained parameters. A scalar has an empty shape.
//
// Floats holds the payload for float dtypes, Ints for integer and bool
// dtypes (bool stored as 0/1).
type Array struct {
	Dtype  Dtype
	Shape  []int64
	Floats []float64
	Ints   []int64
}

// Scalar returns a float64 scalar array.
func Scalar(v float64) *Array {
	return &Array{Dtype: DtypeFloat64, Floats: []float64{v}}
}

// IntScalar returns an int64 scalar array.
func IntScalar(v int64) *Array {
	return &Array{Dtype: DtypeInt64, Ints: []int64{v}}
}

// BoolScalar returns a bool scalar array.
func BoolScalar(v bool) *Array {
	i := int64(0)
	if v {
		i = 1
	}
	return &Array{Dtype: DtypeBool, Ints: []int64{i}}
}

// FromConstant converts a scalar constant payload to an array, following
// the default element types of the source framework: integers widen to
// int64, floats to float64.
func FromConstant(c *Constant) (*Array, error) {
	switch c.Kind {
	case ConstInt:
		return IntScalar(c.Int), nil
	case ConstFloat:
		return Scalar(c.Float), nil
	case ConstBool:
		return BoolScalar(c.Bool), nil
	default:
		return nil, fmt.Errorf("constant kind %d has no array form", c.Kind)
	}
}

// Elems returns the number of elements described by the shape.
func (a *Array) Elems() int {
	n := 1
	for _, d := range a.Shape {
		n *= int(d)
	}
	return n
}

// Narrow32 returns the array with float64 payload narrowed to float32
// precision. Arrays of any other dtype are returned unchanged.
func (a *Array) Narrow32() *Array {
	if a.Dtype != DtypeFloat64 {
		return a
	}
	out := &Array{Dtype: DtypeFloat32, Shape: a.Shape, Ints: a.Ints}
	out.Floats = make([]float64, len(a.Floats))
	for i, v := range a.Floats {
		out.Floats[i] = float64(float32(v))
	}
	return out
}
