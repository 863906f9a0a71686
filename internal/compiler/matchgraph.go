package compiler

import (
	"reflect"
	"slices"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/queryir"
)

// MatchGraph extracts the pattern graph of the context: vertex variables
// become nodes, adjacent edges become pattern edges, and single-alias
// predicates are attached to the node or edge they filter. An adjacent edge
// whose far end is not bound gets a tail node so it can still be looked up,
// and a vertex read from another endpoint of an adjacent edge is recorded
// as that edge's endpoint.
//
// Predicates no node or edge can evaluate are left in Graph.Residual, and
// join sources without a node or edge are listed in Graph.Unmatched.
func (c *Context) MatchGraph() (*matchgraph.Graph, error) {
	b := matchgraph.NewBuilder()
	placed := make(map[Variable]bool)

	for _, v := range c.Variables {
		var node *matchgraph.MatchNode
		switch vv := v.(type) {
		case *VertexVariable:
			name, err := vv.Name()
			if err != nil {
				return nil, err
			}
			node = &matchgraph.MatchNode{Alias: name, NodeTable: "Node"}
			placed[v] = vv.Kind == FreeVertex
		case *ContextVariable:
			if vv.Type() != TypeVertex {
				continue
			}
			name, err := vv.Name()
			if err != nil {
				return nil, err
			}
			node = &matchgraph.MatchNode{Alias: name, NodeTable: "Node", External: true}
			placed[v] = true
		default:
			continue
		}
		node.Properties = elementProperties(v)
		if err := b.AddNode(node); err != nil {
			return nil, err
		}
	}

	var joins []queryir.Boolean
	for _, v := range c.Variables {
		switch vv := v.(type) {
		case *EdgeVariable:
			ok, err := c.addMatchEdge(b, vv)
			if err != nil {
				return nil, err
			}
			if ok {
				placed[vv] = true
				if vv.sink != nil {
					placed[vv.sink] = true
				}
			}
		case *VertexVariable:
			ok, err := addEdgeEnd(b, vv)
			if err != nil {
				return nil, err
			}
			if ok {
				placed[vv] = true
				joins = append(joins, vv.join)
			}
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	g.Residual = attachPredicates(g, c.Predicates, joins)
	if g.Unmatched, err = c.unmatched(placed); err != nil {
		return nil, err
	}
	return g, nil
}

// addMatchEdge adds e as a pattern edge hanging off its owner's node. It
// reports false when e has no owner node to hang off.
func (c *Context) addMatchEdge(b *matchgraph.Builder, e *EdgeVariable) (bool, error) {
	if e.Kind != AdjacentEdge {
		return false, nil
	}
	src, err := e.Vertex.Name()
	if err != nil {
		return false, err
	}
	if _, ok := b.Node(src); !ok {
		return false, nil
	}
	name, err := e.Name()
	if err != nil {
		return false, err
	}

	var sink string
	if e.sink != nil {
		if sink, err = e.sink.Name(); err != nil {
			return false, err
		}
	} else {
		sink = name + "_sink"
		if e.Direction == queryir.Backward {
			sink = name + "_source"
		}
		if err := b.AddNode(&matchgraph.MatchNode{Alias: sink, NodeTable: "Node"}); err != nil {
			return false, err
		}
		if err := b.MarkTail(sink); err != nil {
			return false, err
		}
	}

	me, err := b.AddEdge(name, src, sink)
	if err != nil {
		return false, err
	}
	me.SetDirection(e.Direction)
	me.Labels = e.EdgeLabels
	me.Properties = elementProperties(e)
	if c.pivot == Variable(e) && len(me.Properties) == 0 {
		me.Properties = []string{ir.NodeMarker}
	}
	return true, nil
}

// addEdgeEnd records v as an endpoint of the pattern edge it was read
// from. It reports false when v is not read from a pattern edge or is that
// edge's far end.
func addEdgeEnd(b *matchgraph.Builder, v *VertexVariable) (bool, error) {
	if v.Kind != EdgeEndVertex {
		return false, nil
	}
	e, ok := v.From.(*EdgeVariable)
	if !ok || e.Kind != AdjacentEdge || e.sink == v {
		return false, nil
	}
	edge, err := e.Name()
	if err != nil {
		return false, err
	}
	if _, ok := b.Edge(edge); !ok {
		return false, nil
	}
	name, err := v.Name()
	if err != nil {
		return false, err
	}
	if err := b.AddEndpoint(name, edge, v.End.pattern()); err != nil {
		return false, err
	}
	return true, nil
}

// unmatched names the join sources and the pivot that placed does not hold.
func (c *Context) unmatched(placed map[Variable]bool) ([]string, error) {
	refs := c.FromRefs
	if c.pivot != nil && !slices.Contains(refs, c.pivot) {
		refs = append(slices.Clone(refs), c.pivot)
	}
	var out []string
	for _, v := range refs {
		if placed[v] {
			continue
		}
		name, err := v.Name()
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// elementProperties is v's projected set without the whole-element marker
// and the meta fields every record carries anyway.
func elementProperties(v Variable) []string {
	var out []string
	for _, p := range v.ProjectedProperties() {
		if !ir.IsMetaProperty(p) {
			out = append(out, p)
		}
	}
	return out
}

// attachPredicates hangs each top-level conjunct that references exactly one
// pattern alias, and no other alias, on that node or edge. Aliases a
// property sub-query binds for itself do not count; a conjunct holding a
// sub-traversal never attaches. Endpoint joins are carried by the graph
// structure and dropped. Every other conjunct is returned.
func attachPredicates(g *matchgraph.Graph, where queryir.Boolean, joins []queryir.Boolean) []queryir.Boolean {
	if where == nil {
		return nil
	}
	terms := []queryir.Boolean{where}
	switch w := where.(type) {
	case queryir.And:
		terms = w.Terms
	case *queryir.And:
		terms = w.Terms
	}

	var residual []queryir.Boolean
	for _, term := range terms {
		switch term.(type) {
		case queryir.True, *queryir.True:
			continue
		}
		if slices.ContainsFunc(joins, func(j queryir.Boolean) bool { return reflect.DeepEqual(j, term) }) {
			continue
		}
		funcs, tables := queryir.NestedBindings(term)
		var refs []string
		for _, alias := range queryir.Aliases(term) {
			if !slices.Contains(funcs, alias) {
				refs = append(refs, alias)
			}
		}
		if len(tables) > 0 || len(refs) != 1 {
			residual = append(residual, term)
			continue
		}
		if n, ok := g.TryGetNode(refs[0]); ok {
			n.Predicates = append(n.Predicates, term)
		} else if e, ok := g.TryGetEdge(refs[0]); ok {
			e.Predicates = append(e.Predicates, term)
		} else {
			residual = append(residual, term)
		}
	}
	return residual
}
