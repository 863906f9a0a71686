package matchgraph

import (
	"fmt"

	"golang.org/x/text/cases"

	"github.com/roach88/gview/internal/queryir"
)

// foldKey maps an alias to its case-insensitive lookup key.
func foldKey(alias string) string {
	return cases.Fold().String(alias)
}

// ConnectedComponent is a maximal set of aliases reachable from one another
// through pattern edges.
type ConnectedComponent struct {
	nodes     map[string]*MatchNode
	edges     map[string]*MatchEdge
	nodeOrder []*MatchNode
	edgeOrder []*MatchEdge

	// isTail marks nodes masked from ContainsNode.
	isTail map[*MatchNode]bool
}

// NewConnectedComponent creates an empty component.
func NewConnectedComponent() *ConnectedComponent {
	return &ConnectedComponent{
		nodes:  make(map[string]*MatchNode),
		edges:  make(map[string]*MatchEdge),
		isTail: make(map[*MatchNode]bool),
	}
}

// AddNode adds n, replacing any node with the same (case-folded) alias.
func (c *ConnectedComponent) AddNode(n *MatchNode) {
	key := foldKey(n.Alias)
	if old, ok := c.nodes[key]; ok {
		for i, existing := range c.nodeOrder {
			if existing == old {
				c.nodeOrder[i] = n
			}
		}
		c.isTail[n] = c.isTail[old]
		delete(c.isTail, old)
	} else {
		c.nodeOrder = append(c.nodeOrder, n)
		c.isTail[n] = false
	}
	c.nodes[key] = n
}

// AddEdge adds e, replacing any edge with the same (case-folded) alias.
func (c *ConnectedComponent) AddEdge(e *MatchEdge) {
	key := foldKey(e.Alias)
	if old, ok := c.edges[key]; ok {
		for i, existing := range c.edgeOrder {
			if existing == old {
				c.edgeOrder[i] = e
			}
		}
	} else {
		c.edgeOrder = append(c.edgeOrder, e)
	}
	c.edges[key] = e
}

// MarkTail sets the tail flag of the node bound to alias.
// It returns false when the alias is not in the component.
func (c *ConnectedComponent) MarkTail(alias string, tail bool) bool {
	n, ok := c.nodes[foldKey(alias)]
	if !ok {
		return false
	}
	c.isTail[n] = tail
	return true
}

// IsTail reports whether n is masked as a tail node.
func (c *ConnectedComponent) IsTail(n *MatchNode) bool {
	return c.isTail[n]
}

// Node returns the node bound to alias.
func (c *ConnectedComponent) Node(alias string) (*MatchNode, bool) {
	n, ok := c.nodes[foldKey(alias)]
	return n, ok
}

// Edge returns the edge bound to alias.
func (c *ConnectedComponent) Edge(alias string) (*MatchEdge, bool) {
	e, ok := c.edges[foldKey(alias)]
	return e, ok
}

// Nodes returns the component's nodes in insertion order.
func (c *ConnectedComponent) Nodes() []*MatchNode {
	return c.nodeOrder
}

// Edges returns the component's edges in insertion order.
func (c *ConnectedComponent) Edges() []*MatchEdge {
	return c.edgeOrder
}

// Root returns the first node that is not a tail, external or an edge
// endpoint: the alias a query for this component ranges over. Falls back
// to the first node.
func (c *ConnectedComponent) Root() *MatchNode {
	for _, n := range c.nodeOrder {
		if !c.isTail[n] && !n.External && n.EndpointOf == nil {
			return n
		}
	}
	if len(c.nodeOrder) > 0 {
		return c.nodeOrder[0]
	}
	return nil
}

// Graph is the union of its connected components.
type Graph struct {
	Components []*ConnectedComponent

	// Residual are the predicates no single node or edge can evaluate:
	// conditions across several aliases and sub-traversal filters.
	Residual []queryir.Boolean

	// Unmatched are the aliases of join sources with no node or edge.
	Unmatched []string
}

// NewGraph assembles components into a graph.
// Returns an error when a non-tail alias appears in more than one component.
func NewGraph(components ...*ConnectedComponent) (*Graph, error) {
	owner := make(map[string]int)
	for i, c := range components {
		for _, n := range c.nodeOrder {
			if c.isTail[n] {
				continue
			}
			key := foldKey(n.Alias)
			if prev, dup := owner[key]; dup {
				return nil, fmt.Errorf("alias %q bound in components %d and %d", n.Alias, prev, i)
			}
			owner[key] = i
		}
	}
	return &Graph{Components: components}, nil
}

// ContainsNode reports whether any component binds alias to a non-tail node.
func (g *Graph) ContainsNode(alias string) bool {
	key := foldKey(alias)
	for _, c := range g.Components {
		if n, ok := c.nodes[key]; ok && !c.isTail[n] {
			return true
		}
	}
	return false
}

// TryGetNode returns the first node bound to alias, tail nodes included.
func (g *Graph) TryGetNode(alias string) (*MatchNode, bool) {
	key := foldKey(alias)
	for _, c := range g.Components {
		if n, ok := c.nodes[key]; ok {
			return n, true
		}
	}
	return nil, false
}

// TryGetEdge returns the first edge bound to alias.
func (g *Graph) TryGetEdge(alias string) (*MatchEdge, bool) {
	key := foldKey(alias)
	for _, c := range g.Components {
		if e, ok := c.edges[key]; ok {
			return e, true
		}
	}
	return nil, false
}

// ComponentOf returns the component owning the first node bound to alias.
func (g *Graph) ComponentOf(alias string) (*ConnectedComponent, bool) {
	key := foldKey(alias)
	for _, c := range g.Components {
		if _, ok := c.nodes[key]; ok {
			return c, true
		}
	}
	return nil, false
}
