package convert

import (
	"strconv"

	"github.com/gotensor/onnxgen/ir"
)

// Normalize rewrites a graph tree so that no graph output aliases a graph
// input and no value occupies more than one output position, inserting
// explicit copy nodes for the offending positions. Both constraints come
// from the target format's control-flow constructs, which require branch
// and loop outputs to be observably distinct identifiers.
//
// The graph is mutated in place; new copy nodes are appended at the end of
// the node sequence. Idempotent: a second run inserts nothing. The number
// of output positions never changes, only the values occupying them.
func Normalize(g *ir.Graph) {
	inputs := make(map[*ir.Value]bool, len(g.Inputs))
	for _, v := range g.Inputs {
		inputs[v] = true
	}

	// Outputs that are also inputs get one shared copy.
	replacing := make(map[*ir.Value]*ir.Value)
	for _, out := range g.Outputs {
		if inputs[out] && replacing[out] == nil {
			replacing[out] = appendCopy(g, out, out.Name+"_cp")
		}
	}
	for i, out := range g.Outputs {
		if c := replacing[out]; c != nil {
			g.Outputs[i] = c
		}
	}

	// Every repeated occupant after the first gets its own copy.
	seen := make(map[*ir.Value]int)
	for i, out := range g.Outputs {
		cnt, dup := seen[out]
		if !dup {
			seen[out] = 0
			continue
		}
		copied := appendCopy(g, out, out.Name+"_cp_out_"+strconv.Itoa(cnt))
		seen[out] = cnt + 1
		g.Outputs[i] = copied
	}

	for _, n := range g.Nodes {
		for _, sub := range n.Subgraphs() {
			Normalize(sub)
		}
	}
}

// appendCopy synthesizes a copy node loading the identity of v and returns
// the fresh value holding the result.
func appendCopy(g *ir.Graph, v *ir.Value, name string) *ir.Value {
	copied := v.Clone()
	copied.Name = name
	node := &ir.Node{
		Op:      ir.Copy{Value: v},
		Inputs:  []*ir.Value{v},
		Outputs: []*ir.Value{copied},
	}
	copied.Generator = node
	g.AddNode(node)
	return copied
}
