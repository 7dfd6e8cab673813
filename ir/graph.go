package ir

import "fmt"

// Graph is an ordered sequence of nodes with declared input and output
// values. Nested graphs hang off control-flow nodes; the top-level graph
// is the traced function itself.
type Graph struct {
	Name    string
	Nodes   []*Node
	Inputs  []*Value
	Outputs []*Value
}

// AddNode appends a node. Appending is always legal: the dataflow graph
// has no ordering requirement beyond data dependencies.
func (g *Graph) AddNode(n *Node) {
	g.Nodes = append(g.Nodes, n)
}

// Location tags a node with its position in the traced source program.
// The zero Location means "unknown".
type Location struct {
	Line int
}

func (l Location) String() string {
	if l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("L%d", l.Line)
}
