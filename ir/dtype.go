package ir

import "fmt"

// Dtype is the element type of a tensor or number value.
type Dtype uint8

const (
	DtypeUnknown Dtype = iota
	DtypeBool
	DtypeInt32
	DtypeInt64
	DtypeFloat32
	DtypeFloat64
)

var dtypeNames = [...]string{
	DtypeUnknown: "unknown",
	DtypeBool:    "bool",
	DtypeInt32:   "int32",
	DtypeInt64:   "int64",
	DtypeFloat32: "float32",
	DtypeFloat64: "float64",
}

func (d Dtype) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return "invalid"
}

// IsFloat reports whether d is a floating-point element type.
func (d Dtype) IsFloat() bool {
	return d == DtypeFloat32 || d == DtypeFloat64
}

// ParseDtype resolves a dtype by its name, as written in dtype keyword
// arguments of traced array constructors.
func ParseDtype(name string) (Dtype, error) {
	for d, n := range dtypeNames {
		if n == name && Dtype(d) != DtypeUnknown {
			return Dtype(d), nil
		}
	}
	return DtypeUnknown, fmt.Errorf("unknown dtype %q", name)
}
