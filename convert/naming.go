package convert

import (
	"strconv"

	"github.com/gotensor/onnxgen/ir"
)

// nameRegistry is a bijection from IR values and nodes to globally-unique
// output identifiers. Collisions are broken by suffixing _1, _2, … in
// assignment order, so which entity wins the unsuffixed name is fixed by
// the traversal order of assignGraph.
type nameRegistry struct {
	assigned   map[string]struct{}
	valueNames map[*ir.Value]string
	nodeNames  map[*ir.Node]string
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{
		assigned:   make(map[string]struct{}),
		valueNames: make(map[*ir.Value]string),
		nodeNames:  make(map[*ir.Node]string),
	}
}

// fresh mints an unused identifier derived from base and claims it.
func (r *nameRegistry) fresh(base string) string {
	if base == "" {
		base = "noname"
	}
	name := base
	for ind := 1; ; ind++ {
		if _, taken := r.assigned[name]; !taken {
			break
		}
		name = base + "_" + strconv.Itoa(ind)
	}
	r.assigned[name] = struct{}{}
	return name
}

// reserve claims an identifier verbatim. Used for parameter names, which
// are registered before any graph entity so they always win.
func (r *nameRegistry) reserve(name string) {
	r.assigned[name] = struct{}{}
}

// valueName returns the identifier assigned to v, assigning one on first
// use. Idempotent: repeated calls return the identical identifier.
//
// The base name is the value's declared name; values produced by a node
// additionally carry the node's source-location tag, which keeps distinct
// loop iterations of the same variable apart.
func (r *nameRegistry) valueName(v *ir.Value) string {
	if name, ok := r.valueNames[v]; ok {
		return name
	}
	base := v.Name
	if v.Generator != nil {
		if loc := v.Generator.Loc.String(); loc != "" {
			base = v.Name + "_" + loc
		}
	}
	name := r.fresh(base)
	r.valueNames[v] = name
	return name
}

// nodeName returns the identifier assigned to n, assigning one on first
// use. The base name is the op mnemonic plus the source-location tag.
func (r *nameRegistry) nodeName(n *ir.Node) string {
	if name, ok := r.nodeNames[n]; ok {
		return name
	}
	base := ir.OpName(n.Op)
	if loc := n.Loc.String(); loc != "" {
		base = base + "_" + loc
	}
	name := r.fresh(base)
	r.nodeNames[n] = name
	return name
}

// assignGraph walks the graph tree in the fixed naming order: the graph's
// declared inputs, its declared outputs, then per node its inputs, its
// outputs, its keyword-argument values, the node itself, and finally its
// nested subgraphs depth-first.
func (r *nameRegistry) assignGraph(g *ir.Graph) {
	for _, v := range g.Inputs {
		r.valueName(v)
	}
	for _, v := range g.Outputs {
		r.valueName(v)
	}
	for _, n := range g.Nodes {
		for _, v := range n.Inputs {
			r.valueName(v)
		}
		for _, v := range n.Outputs {
			r.valueName(v)
		}
		if gen, ok := n.Op.(ir.Generate); ok {
			for _, kw := range gen.Args {
				r.valueName(kw.Value)
			}
		}
		r.nodeName(n)
		for _, sub := range n.Subgraphs() {
			r.assignGraph(sub)
		}
	}
}
