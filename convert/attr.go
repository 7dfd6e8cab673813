package convert

import (
	"fmt"

	"github.com/gotensor/onnxgen/ir"
)

// attrValue is the outcome of resolving a keyword argument to a literal.
// known is false when the value exists but is not statically resolvable;
// a known value with a nil payload is an explicit None (or an absent
// keyword, which resolves the same way).
type attrValue struct {
	known bool
	c     *ir.Constant
}

// tryAttribute resolves a value expected to be a literal. An unresolvable
// scalar produces a warning and an unknown result in the default mode, or
// ErrUnresolvedAttribute in strict mode. A value of a kind that has no
// attribute form produces a warning and the integer sentinel -1.
func (c *context) tryAttribute(v *ir.Value, loc ir.Location) (attrValue, error) {
	if v == nil || v.Kind == ir.KindNone {
		return attrValue{known: true}, nil
	}
	switch v.Kind {
	case ir.KindNumber, ir.KindBool, ir.KindStr:
		if v.Const == nil {
			if c.opts.StrictAttributes {
				return attrValue{}, fmt.Errorf("%w in %s", ErrUnresolvedAttribute, loc)
			}
			c.warnf(loc, "unconst attribute")
			return attrValue{}, nil
		}
		return attrValue{known: true, c: v.Const}, nil

	default:
		if c.opts.StrictAttributes {
			return attrValue{}, fmt.Errorf("%w: %s value has no attribute form in %s", ErrUnresolvedAttribute, v.Kind, loc)
		}
		c.warnf(loc, "cannot convert a %s value into an attribute", v.Kind)
		return attrValue{known: true, c: ir.IntConst(-1)}, nil
	}
}

// attrDtype resolves a dtype keyword argument. Returns DtypeUnknown when
// the keyword is absent, None, or unresolvable.
func (c *context) attrDtype(v *ir.Value, loc ir.Location) (ir.Dtype, error) {
	a, err := c.tryAttribute(v, loc)
	if err != nil || a.c == nil {
		return ir.DtypeUnknown, err
	}
	if a.c.Kind != ir.ConstStr {
		return ir.DtypeUnknown, fmt.Errorf("%w: dtype attribute is not a string in %s", ErrUnsupported, loc)
	}
	dt, err := ir.ParseDtype(a.c.Str)
	if err != nil {
		return ir.DtypeUnknown, fmt.Errorf("dtype attribute in %s: %w", loc, err)
	}
	return dt, nil
}

// attrBoolDefault resolves a bool keyword, substituting def when the
// keyword is absent or None.
func (c *context) attrBoolDefault(v *ir.Value, loc ir.Location, def bool) (bool, error) {
	a, err := c.tryAttribute(v, loc)
	if err != nil || a.c == nil {
		return def, err
	}
	if a.c.Kind != ir.ConstBool {
		return def, fmt.Errorf("%w: expected bool attribute in %s", ErrUnsupported, loc)
	}
	return a.c.Bool, nil
}

// attrStrDefault resolves a string keyword, substituting def when the
// keyword is absent or None.
func (c *context) attrStrDefault(v *ir.Value, loc ir.Location, def string) (string, error) {
	a, err := c.tryAttribute(v, loc)
	if err != nil || a.c == nil {
		return def, err
	}
	if a.c.Kind != ir.ConstStr {
		return def, fmt.Errorf("%w: expected string attribute in %s", ErrUnsupported, loc)
	}
	return a.c.Str, nil
}

// attrIntDefault resolves an integer keyword, substituting def when the
// keyword is absent or None.
func (c *context) attrIntDefault(v *ir.Value, loc ir.Location, def int64) (int64, error) {
	a, err := c.tryAttribute(v, loc)
	if err != nil || a.c == nil {
		return def, err
	}
	if a.c.Kind != ir.ConstInt {
		return def, fmt.Errorf("%w: expected integer attribute in %s", ErrUnsupported, loc)
	}
	return a.c.Int, nil
}
