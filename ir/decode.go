package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a traced-graph fixture from its YAML form. Fixtures stand
// in for the tracer frontend: value identifiers are document-global, so a
// nested subgraph may thread values declared by an enclosing graph.
func Decode(data []byte) (*Graph, error) {
	var doc graphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	d := &decoder{values: make(map[string]*Value)}
	return d.graph(&doc)
}

type graphDoc struct {
	Name    string     `yaml:"name"`
	Values  []valueDoc `yaml:"values"`
	Nodes   []nodeDoc  `yaml:"nodes"`
	Inputs  []string   `yaml:"inputs"`
	Outputs []string   `yaml:"outputs"`
}

type valueDoc struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Dtype    string     `yaml:"dtype"`
	Shape    []int64    `yaml:"shape"`
	// A value Node rather than *Node: yaml.v3 (v3.0.1, latest) cannot
	// decode scalars into a *yaml.Node field; absence is detected via
	// Node.IsZero instead of a nil check.
	Const    yaml.Node `yaml:"const"`
	Elements []string   `yaml:"elements"`
}

type nodeDoc struct {
	Op   string `yaml:"op"`
	Kind string `yaml:"kind"`
	Line int    `yaml:"line"`

	Left    string `yaml:"left"`
	Right   string `yaml:"right"`
	Target  string `yaml:"target"`
	Value   string `yaml:"value"`
	Operand string `yaml:"operand"`
	Cond    string `yaml:"cond"`
	Iter    string `yaml:"iter"`
	Counter string `yaml:"counter"`

	Indexes    []string `yaml:"indexes"`
	SliceSpecs []int64  `yaml:"slice_specs"`
	Carried    []string `yaml:"carried"`
	Class      string   `yaml:"class"`

	Fn   *funcDoc   `yaml:"fn"`
	Args []kwargDoc `yaml:"args"`

	Then *graphDoc `yaml:"then"`
	Else *graphDoc `yaml:"else"`
	Body *graphDoc `yaml:"body"`

	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}

type funcDoc struct {
	Name    string `yaml:"name"`
	Builtin string `yaml:"builtin"`
	Base    string `yaml:"base"`
	Layer   string `yaml:"layer"`
}

type kwargDoc struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type decoder struct {
	values map[string]*Value
}

func (d *decoder) graph(doc *graphDoc) (*Graph, error) {
	for i := range doc.Values {
		if err := d.declareValue(&doc.Values[i]); err != nil {
			return nil, err
		}
	}

	g := &Graph{Name: doc.Name}
	var err error
	if g.Inputs, err = d.resolveAll(doc.Inputs); err != nil {
		return nil, fmt.Errorf("graph %q inputs: %w", doc.Name, err)
	}
	if g.Outputs, err = d.resolveAll(doc.Outputs); err != nil {
		return nil, fmt.Errorf("graph %q outputs: %w", doc.Name, err)
	}

	for i := range doc.Nodes {
		node, err := d.node(&doc.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("graph %q node %d: %w", doc.Name, i, err)
		}
		g.AddNode(node)
	}
	return g, nil
}

func (d *decoder) declareValue(doc *valueDoc) error {
	if doc.ID == "" {
		return fmt.Errorf("value without id")
	}
	if _, ok := d.values[doc.ID]; ok {
		return fmt.Errorf("value %q declared twice", doc.ID)
	}

	v := &Value{Name: doc.Name, Shape: doc.Shape}
	if doc.Name == "" {
		v.Name = doc.ID
	}

	kind, err := parseValueKind(doc.Kind)
	if err != nil {
		return fmt.Errorf("value %q: %w", doc.ID, err)
	}
	v.Kind = kind

	if doc.Dtype != "" {
		if v.Dtype, err = ParseDtype(doc.Dtype); err != nil {
			return fmt.Errorf("value %q: %w", doc.ID, err)
		}
	}
	if !doc.Const.IsZero() {
		if v.Const, err = parseConst(&doc.Const); err != nil {
			return fmt.Errorf("value %q: %w", doc.ID, err)
		}
	}
	for _, id := range doc.Elements {
		elem, err := d.resolve(id)
		if err != nil {
			return fmt.Errorf("value %q elements: %w", doc.ID, err)
		}
		v.Elements = append(v.Elements, elem)
	}

	d.values[doc.ID] = v
	return nil
}

func parseValueKind(name string) (ValueKind, error) {
	for k, n := range valueKindNames {
		if n == name {
			return ValueKind(k), nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown value kind %q", name)
}

func parseConst(n *yaml.Node) (*Constant, error) {
	switch n.Tag {
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return IntConst(v), nil
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return FloatConst(v), nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return BoolConst(v), nil
	case "!!str":
		return StrConst(n.Value), nil
	default:
		return nil, fmt.Errorf("unsupported constant tag %s", n.Tag)
	}
}

func (d *decoder) resolve(id string) (*Value, error) {
	v, ok := d.values[id]
	if !ok {
		return nil, fmt.Errorf("unknown value %q", id)
	}
	return v, nil
}

func (d *decoder) resolveAll(ids []string) ([]*Value, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]*Value, len(ids))
	for i, id := range ids {
		v, err := d.resolve(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *decoder) node(doc *nodeDoc) (*Node, error) {
	n := &Node{Loc: Location{Line: doc.Line}}

	var err error
	var defaultInputs []string
	switch doc.Op {
	case "binop":
		op := BinOp{}
		if op.Kind, err = parseBinOpKind(doc.Kind); err != nil {
			return nil, err
		}
		if op.Left, err = d.resolve(doc.Left); err != nil {
			return nil, err
		}
		if op.Right, err = d.resolve(doc.Right); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Left, doc.Right}

	case "augassign":
		op := AugAssign{}
		if op.Kind, err = parseBinOpKind(doc.Kind); err != nil {
			return nil, err
		}
		if op.Target, err = d.resolve(doc.Target); err != nil {
			return nil, err
		}
		if op.Value, err = d.resolve(doc.Value); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Target, doc.Value}

	case "unary":
		op := UnaryOp{}
		if op.Kind, err = parseUnaryOpKind(doc.Kind); err != nil {
			return nil, err
		}
		if op.Operand, err = d.resolve(doc.Operand); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Operand}

	case "compare":
		op := Compare{}
		if op.Kind, err = parseCompareKind(doc.Kind); err != nil {
			return nil, err
		}
		if op.Left, err = d.resolve(doc.Left); err != nil {
			return nil, err
		}
		if op.Right, err = d.resolve(doc.Right); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Left, doc.Right}

	case "getitem":
		op := GetItem{}
		if op.Target, err = d.resolve(doc.Target); err != nil {
			return nil, err
		}
		if op.Indexes, err = d.resolveAll(doc.Indexes); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = append([]string{doc.Target}, doc.Indexes...)

	case "slice":
		op := Slice{SliceSpecs: doc.SliceSpecs}
		if op.Target, err = d.resolve(doc.Target); err != nil {
			return nil, err
		}
		if op.Indices, err = d.resolveAll(doc.Indexes); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = append([]string{doc.Target}, doc.Indexes...)

	case "call":
		if doc.Fn == nil {
			return nil, fmt.Errorf("call node without fn")
		}
		fn := &Function{Name: doc.Fn.Name, BaseName: doc.Fn.Base, LayerType: doc.Fn.Layer}
		if fn.Builtin, err = parseBuiltin(doc.Fn.Builtin); err != nil {
			return nil, err
		}
		n.Op = Call{Fn: fn}

	case "if":
		op := If{}
		if op.Cond, err = d.resolve(doc.Cond); err != nil {
			return nil, err
		}
		if op.Carried, err = d.resolveAll(doc.Carried); err != nil {
			return nil, err
		}
		if doc.Then == nil || doc.Else == nil {
			return nil, fmt.Errorf("if node requires then and else graphs")
		}
		if op.Then, err = d.graph(doc.Then); err != nil {
			return nil, err
		}
		if op.Else, err = d.graph(doc.Else); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = append([]string{doc.Cond}, doc.Carried...)

	case "for", "listcomp":
		iter, err := d.resolve(doc.Iter)
		if err != nil {
			return nil, err
		}
		carried, err := d.resolveAll(doc.Carried)
		if err != nil {
			return nil, err
		}
		if doc.Body == nil {
			return nil, fmt.Errorf("%s node requires a body graph", doc.Op)
		}
		body, err := d.graph(doc.Body)
		if err != nil {
			return nil, err
		}
		if doc.Op == "for" {
			n.Op = For{Iter: iter, Body: body, Carried: carried}
		} else {
			n.Op = Listcomp{Iter: iter, Body: body, Carried: carried}
		}
		defaultInputs = append([]string{doc.Iter}, doc.Carried...)

	case "forgenerator":
		op := ForGenerator{}
		if op.Iter, err = d.resolve(doc.Iter); err != nil {
			return nil, err
		}
		if op.Counter, err = d.resolve(doc.Counter); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Iter, doc.Counter}

	case "convert":
		if doc.Class != "List" {
			return nil, fmt.Errorf("unknown convert class %q", doc.Class)
		}
		op := Convert{Class: ConvertList}
		if op.Value, err = d.resolve(doc.Value); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Value}

	case "generate":
		op := Generate{}
		if op.Class, err = parseGenerateClass(doc.Class); err != nil {
			return nil, err
		}
		for _, kw := range doc.Args {
			v, err := d.resolve(kw.Value)
			if err != nil {
				return nil, fmt.Errorf("arg %q: %w", kw.Name, err)
			}
			op.Args = append(op.Args, KeywordArg{Name: kw.Name, Value: v})
		}
		n.Op = op

	case "copy":
		op := Copy{}
		if op.Value, err = d.resolve(doc.Value); err != nil {
			return nil, err
		}
		n.Op = op
		defaultInputs = []string{doc.Value}

	case "return":
		n.Op = Return{}

	case "invalid":
		n.Op = Invalid{}

	default:
		return nil, fmt.Errorf("unknown node op %q", doc.Op)
	}

	inputs := doc.Inputs
	if inputs == nil {
		inputs = defaultInputs
	}
	if n.Inputs, err = d.resolveAll(inputs); err != nil {
		return nil, err
	}
	if gen, ok := n.Op.(Generate); ok {
		// Keyword values must be reachable through Inputs for naming.
		for _, kw := range gen.Args {
			if !containsValue(n.Inputs, kw.Value) {
				n.Inputs = append(n.Inputs, kw.Value)
			}
		}
	}
	if n.Outputs, err = d.resolveAll(doc.Outputs); err != nil {
		return nil, err
	}
	for _, out := range n.Outputs {
		if out.Generator == nil {
			out.Generator = n
		}
	}
	return n, nil
}

func containsValue(vs []*Value, v *Value) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

func parseBinOpKind(name string) (BinOpKind, error) {
	switch name {
	case "add":
		return BinAdd, nil
	case "sub":
		return BinSub, nil
	case "mul":
		return BinMul, nil
	case "", "unknown":
		return BinUnknown, nil
	default:
		return BinUnknown, fmt.Errorf("unknown binop kind %q", name)
	}
}

func parseUnaryOpKind(name string) (UnaryOpKind, error) {
	switch name {
	case "plus":
		return UnaryPlus, nil
	case "neg":
		return UnaryNeg, nil
	case "not":
		return UnaryNot, nil
	default:
		return UnaryPlus, fmt.Errorf("unknown unary kind %q", name)
	}
}

func parseCompareKind(name string) (CompareKind, error) {
	switch name {
	case "eq":
		return CmpEq, nil
	case "noteq":
		return CmpNotEq, nil
	case "gt":
		return CmpGt, nil
	case "gte":
		return CmpGtE, nil
	case "lt":
		return CmpLt, nil
	case "lte":
		return CmpLtE, nil
	case "is":
		return CmpIs, nil
	case "isnot":
		return CmpIsNot, nil
	default:
		return CmpEq, fmt.Errorf("unknown compare kind %q", name)
	}
}

func parseBuiltin(name string) (Builtin, error) {
	switch name {
	case "", "none":
		return BuiltinNone, nil
	case "append":
		return BuiltinAppend, nil
	case "shape":
		return BuiltinShape, nil
	case "size":
		return BuiltinSize, nil
	case "ceil":
		return BuiltinCeil, nil
	case "layer":
		return BuiltinLayer, nil
	default:
		return BuiltinNone, fmt.Errorf("unknown builtin %q", name)
	}
}

func parseGenerateClass(name string) (GenerateClass, error) {
	for g, n := range generateClassNames {
		if n == name {
			return GenerateClass(g), nil
		}
	}
	return GenRange, fmt.Errorf("unknown generate class %q", name)
}
