package matchgraph

import "fmt"

// Builder partitions nodes and edges into connected components.
//
//	b := matchgraph.NewBuilder()
//	b.AddNode(&matchgraph.MatchNode{Alias: "N_0"})
//	b.AddNode(&matchgraph.MatchNode{Alias: "N_2"})
//	b.AddEdge("E_1", "N_0", "N_2")
//	g, err := b.Build()
type Builder struct {
	nodes  []*MatchNode
	byKey  map[string]*MatchNode
	edges  []*MatchEdge
	tails  map[string]bool
	parent map[string]string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		byKey:  make(map[string]*MatchNode),
		tails:  make(map[string]bool),
		parent: make(map[string]string),
	}
}

// AddNode registers a node. Aliases must be unique within the builder.
func (b *Builder) AddNode(n *MatchNode) error {
	if n == nil || n.Alias == "" {
		return fmt.Errorf("node alias is required")
	}
	key := foldKey(n.Alias)
	if _, dup := b.byKey[key]; dup {
		return fmt.Errorf("duplicate node alias %q", n.Alias)
	}
	b.byKey[key] = n
	b.nodes = append(b.nodes, n)
	b.parent[key] = key
	return nil
}

// Node returns a registered node.
func (b *Builder) Node(alias string) (*MatchNode, bool) {
	n, ok := b.byKey[foldKey(alias)]
	return n, ok
}

// AddEdge connects two registered nodes and returns the new edge, which
// the caller may further configure (labels, direction, length range).
func (b *Builder) AddEdge(alias, source, sink string) (*MatchEdge, error) {
	src, ok := b.byKey[foldKey(source)]
	if !ok {
		return nil, fmt.Errorf("edge %s: unknown source node %q", alias, source)
	}
	dst, ok := b.byKey[foldKey(sink)]
	if !ok {
		return nil, fmt.Errorf("edge %s: unknown sink node %q", alias, sink)
	}
	if _, dup := b.Edge(alias); dup {
		return nil, fmt.Errorf("duplicate edge alias %q", alias)
	}

	e := NewMatchEdge(alias, src, dst)
	e.BindNodeTable = src.NodeTable
	src.Neighbors = append(src.Neighbors, e)
	b.edges = append(b.edges, e)
	b.union(foldKey(source), foldKey(sink))
	return e, nil
}

// Edge returns a registered edge.
func (b *Builder) Edge(alias string) (*MatchEdge, bool) {
	for _, e := range b.edges {
		if foldKey(e.Alias) == foldKey(alias) {
			return e, true
		}
	}
	return nil, false
}

// AddEndpoint binds a registered node to one endpoint of a registered
// edge's document. The node joins the component of the edge's source.
func (b *Builder) AddEndpoint(alias, edge string, end EdgeEnd) error {
	n, ok := b.byKey[foldKey(alias)]
	if !ok {
		return fmt.Errorf("unknown node %q", alias)
	}
	e, ok := b.Edge(edge)
	if !ok {
		return fmt.Errorf("unknown edge %q", edge)
	}
	if n.EndpointOf != nil {
		return fmt.Errorf("node %q already reads an endpoint of %s", alias, n.EndpointOf.Alias)
	}
	n.EndpointOf = e
	n.End = end
	b.union(foldKey(e.Source.Alias), foldKey(alias))
	return nil
}

// MarkTail masks a node from ContainsNode once built.
func (b *Builder) MarkTail(alias string) error {
	if _, ok := b.byKey[foldKey(alias)]; !ok {
		return fmt.Errorf("unknown node %q", alias)
	}
	b.tails[foldKey(alias)] = true
	return nil
}

// Build partitions the registered nodes into components. Components are
// ordered by the insertion order of their first node; nodes and edges keep
// insertion order within a component.
func (b *Builder) Build() (*Graph, error) {
	index := make(map[string]*ConnectedComponent)
	var components []*ConnectedComponent

	for _, n := range b.nodes {
		key := foldKey(n.Alias)
		root := b.find(key)
		c, ok := index[root]
		if !ok {
			c = NewConnectedComponent()
			index[root] = c
			components = append(components, c)
		}
		c.AddNode(n)
		if b.tails[key] {
			c.MarkTail(n.Alias, true)
		}
	}

	for _, e := range b.edges {
		c := index[b.find(foldKey(e.Source.Alias))]
		c.AddEdge(e)
	}

	return NewGraph(components...)
}

func (b *Builder) find(key string) string {
	for b.parent[key] != key {
		b.parent[key] = b.parent[b.parent[key]]
		key = b.parent[key]
	}
	return key
}

func (b *Builder) union(x, y string) {
	rx, ry := b.find(x), b.find(y)
	if rx != ry {
		b.parent[ry] = rx
	}
}
