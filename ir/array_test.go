package ir

import "testing"

func TestFromConstant(t *testing.T) {
	a, err := FromConstant(IntConst(7))
	if err != nil {
		t.Fatal(err)
	}
	if a.Dtype != DtypeInt64 || a.Ints[0] != 7 {
		t.Errorf("integers widen to int64, got %+v", a)
	}

	a, err = FromConstant(FloatConst(1.5))
	if err != nil {
		t.Fatal(err)
	}
	if a.Dtype != DtypeFloat64 || a.Floats[0] != 1.5 {
		t.Errorf("floats widen to float64, got %+v", a)
	}

	if _, err = FromConstant(StrConst("x")); err == nil {
		t.Error("strings have no array form")
	}
}

func TestNarrow32(t *testing.T) {
	a := Scalar(0.1)
	n := a.Narrow32()
	if n.Dtype != DtypeFloat32 {
		t.Fatalf("Narrow32 dtype = %s", n.Dtype)
	}
	if n.Floats[0] != float64(float32(0.1)) {
		t.Errorf("payload not narrowed: %v", n.Floats[0])
	}
	if a.Floats[0] != 0.1 {
		t.Error("Narrow32 must not mutate the receiver")
	}

	i := IntScalar(3)
	if i.Narrow32() != i {
		t.Error("non-float arrays pass through unchanged")
	}
}

func TestElems(t *testing.T) {
	a := &Array{Shape: []int64{2, 3}}
	if a.Elems() != 6 {
		t.Errorf("Elems() = %d", a.Elems())
	}
	s := &Array{}
	if s.Elems() != 1 {
		t.Errorf("scalar Elems() = %d", s.Elems())
	}
}
