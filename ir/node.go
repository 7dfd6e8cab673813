package ir

import "fmt"

// Node is a typed operation in a traced graph.
//
// Inputs and Outputs are the ordered operand lists the naming pass walks;
// every value an op variant references must appear in one of them. Output
// values are freshly introduced by the node that produces them; the
// preprocessor enforces that no value occupies two output positions of a
// graph.
type Node struct {
	Op      NodeOp
	Inputs  []*Value
	Outputs []*Value
	Loc     Location
}

// NodeOp is the closed set of node variants.
type NodeOp interface {
	nodeOp()
}

// BinOpKind is an arithmetic operator of a BinOp or AugAssign node.
type BinOpKind uint8

const (
	BinUnknown BinOpKind = iota
	BinAdd
	BinSub
	BinMul
)

// UnaryOpKind is the operator of a UnaryOp node.
type UnaryOpKind uint8

const (
	UnaryPlus UnaryOpKind = iota
	UnaryNeg
	UnaryNot
)

// CompareKind is the operator of a Compare node.
type CompareKind uint8

const (
	CmpEq CompareKind = iota
	CmpNotEq
	CmpGt
	CmpGtE
	CmpLt
	CmpLtE
	CmpIs
	CmpIsNot
)

// BinOp is an elementwise or sequence-generic binary operation.
type BinOp struct {
	Kind  BinOpKind
	Left  *Value
	Right *Value
}

func (BinOp) nodeOp() {}

// AugAssign is an in-place augmented assignment (target op= value).
type AugAssign struct {
	Kind   BinOpKind
	Target *Value
	Value  *Value
}

func (AugAssign) nodeOp() {}

// UnaryOp is a unary operation on a single operand.
type UnaryOp struct {
	Kind    UnaryOpKind
	Operand *Value
}

func (UnaryOp) nodeOp() {}

// Compare is a binary comparison producing a bool value.
type Compare struct {
	Kind  CompareKind
	Left  *Value
	Right *Value
}

func (Compare) nodeOp() {}

// GetItem is an index access target[i] or target[i, j, ...].
type GetItem struct {
	Target  *Value
	Indexes []*Value
}

func (GetItem) nodeOp() {}

// Slice is a range access target[a:b, ...]. SliceSpecs carries one flag
// per index position as produced by the tracer.
type Slice struct {
	Target     *Value
	Indices    []*Value
	SliceSpecs []int64
}

func (Slice) nodeOp() {}

// Call invokes a built-in or framework function.
type Call struct {
	Fn *Function
}

func (Call) nodeOp() {}

// If is a two-way branch. Carried lists the outer values threaded into
// either branch body; the node's Inputs are [Cond, Carried...].
type If struct {
	Cond    *Value
	Then    *Graph
	Else    *Graph
	Carried []*Value
}

func (If) nodeOp() {}

// For is a bounded loop over a sequence. Carried lists the loop-carried
// outer values; the node's Inputs are [Iter, Carried...].
type For struct {
	Iter    *Value
	Body    *Graph
	Carried []*Value
}

func (For) nodeOp() {}

// ForGenerator is the per-iteration element fetch inside a loop body.
type ForGenerator struct {
	Iter    *Value
	Counter *Value
}

func (ForGenerator) nodeOp() {}

// Listcomp is a list comprehension; it lowers like For.
type Listcomp struct {
	Iter    *Value
	Body    *Graph
	Carried []*Value
}

func (Listcomp) nodeOp() {}

// ConvertClass classifies a Convert node.
type ConvertClass uint8

const (
	// ConvertList converts a sequence value to a list.
	ConvertList ConvertClass = iota
)

// Convert is an explicit container conversion.
type Convert struct {
	Class ConvertClass
	Value *Value
}

func (Convert) nodeOp() {}

// GenerateClass classifies a Generate node.
type GenerateClass uint8

const (
	GenRange GenerateClass = iota
	GenArray
	GenZeros
	GenFull
	GenTuple
	GenList
)

var generateClassNames = [...]string{
	GenRange: "range",
	GenArray: "array",
	GenZeros: "zeros",
	GenFull:  "full",
	GenTuple: "Tuple",
	GenList:  "List",
}

func (g GenerateClass) String() string {
	if int(g) < len(generateClassNames) {
		return generateClassNames[g]
	}
	return "invalid"
}

// Generate constructs a container or array value (range, zeros, full,
// tuple, list, ndarray). Positional operands live in the node's Inputs,
// keyword arguments in Args; keyword values are also listed in Inputs so
// the naming pass reaches them.
type Generate struct {
	Class GenerateClass
	Args  KeywordArgs
}

func (Generate) nodeOp() {}

// Copy loads the identity of a value into a fresh one. Synthesized by the
// preprocessor to break output aliasing.
type Copy struct {
	Value *Value
}

func (Copy) nodeOp() {}

// Return marks the traced function's return; not lowered.
type Return struct{}

func (Return) nodeOp() {}

// Invalid is a tracer placeholder for untranslatable statements; not
// lowered.
type Invalid struct{}

func (Invalid) nodeOp() {}

// KeywordArg is one named argument of a Call or Generate node.
type KeywordArg struct {
	Name  string
	Value *Value
}

// KeywordArgs is an ordered keyword-argument list.
type KeywordArgs []KeywordArg

// Get returns the value bound to name, or nil when absent.
func (a KeywordArgs) Get(name string) *Value {
	for _, kw := range a {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

// Builtin identifies the built-in handler for a Call node.
type Builtin uint8

const (
	BuiltinNone Builtin = iota
	BuiltinAppend
	BuiltinShape
	BuiltinSize
	BuiltinCeil
	BuiltinLayer
)

// Function is the callee of a Call node.
type Function struct {
	Name string

	// Builtin selects a fixed lowering recipe.
	Builtin Builtin

	// BaseName, when non-empty, bypasses built-in dispatch and defers to
	// a converter registered for that base function.
	BaseName string

	// LayerType keys the registered converter for framework-layer calls
	// (Builtin == BuiltinLayer).
	LayerType string
}

// Subgraphs returns the nested graphs attached to the node's control-flow
// variant, in a fixed order.
func (n *Node) Subgraphs() []*Graph {
	switch op := n.Op.(type) {
	case If:
		return []*Graph{op.Then, op.Else}
	case For:
		return []*Graph{op.Body}
	case Listcomp:
		return []*Graph{op.Body}
	default:
		return nil
	}
}

// OpName returns the mnemonic of the node's op variant, used to derive
// output identifiers for nodes.
func OpName(op NodeOp) string {
	switch op := op.(type) {
	case BinOp:
		return "BinOp"
	case AugAssign:
		return "AugAssign"
	case UnaryOp:
		return "UnaryOp"
	case Compare:
		return "Compare"
	case GetItem:
		return "GetItem"
	case Slice:
		return "Slice"
	case Call:
		return "Call"
	case If:
		return "If"
	case For:
		return "For"
	case ForGenerator:
		return "ForGenerator"
	case Listcomp:
		return "Listcomp"
	case Convert:
		return "Convert"
	case Generate:
		return "Generate"
	case Copy:
		return "Copy"
	case Return:
		return "Return"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("%T", op)
	}
}
