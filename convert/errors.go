package convert

import "errors"

// ErrStructural marks an IR construct of a kind the lowering rules do not
// understand. Always fatal: the tracer produced a graph shape with no safe
// partial output.
var ErrStructural = errors.New("unrecognized IR construct")

// ErrUnsupported marks a recognized construct carrying an option
// combination deliberately not implemented. Fatal by explicit precondition
// check, so a graph that does not match the traced semantics is never
// emitted silently.
var ErrUnsupported = errors.New("unsupported configuration")

// ErrUnresolvedAttribute is returned in strict mode when an attribute
// expected to be a literal is not statically known. In the default mode
// the same condition produces a Warning and a sentinel value instead.
var ErrUnresolvedAttribute = errors.New("attribute not statically known")
