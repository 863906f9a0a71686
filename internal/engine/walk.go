package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/querysql"
)

// Match binds the aliases of one pattern instance to decoded vertices and
// edges.
type Match map[string]Field

// Vertex returns the vertex bound to alias.
func (m Match) Vertex(alias string) (*VertexField, bool) {
	v, ok := m[alias].(*VertexField)
	return v, ok
}

// Edge returns the edge bound to alias.
func (m Match) Edge(alias string) (*EdgeField, bool) {
	e, ok := m[alias].(*EdgeField)
	return e, ok
}

// Walk executes a planned query and follows its hops, returning one match
// per pattern instance in result order. The root edge comes from the
// query's edge block where the backend cross-applied it and from the
// expander otherwise; every later hop is expanded client-side, and sink
// vertices are fetched by id through the hop's sink query.
func (c *Connection) Walk(ctx context.Context, plan querysql.PlannedQuery) ([]Match, error) {
	it, err := c.Portal().GetVertices(ctx, plan.Query)
	if err != nil {
		return nil, err
	}
	records, err := it.Collect()
	if err != nil {
		return nil, err
	}

	root := plan.Query.Alias
	width := NodeWidth(plan.Query)
	rootHop, hasRootHop := plan.RootEdge()

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		v, ok := rec.Index(0).(*VertexField)
		if !ok {
			return nil, fmt.Errorf("record for %s does not start with a vertex", root)
		}
		m := Match{root: v}
		if hasRootHop && rootHop.Edge.CrossApplied && rec.Len() > width {
			e, ok := rec.Index(width + len(EdgeMetaFields) - 1).(*EdgeField)
			if !ok {
				return nil, fmt.Errorf("record for %s has no edge in its edge block", root)
			}
			m[rootHop.Edge.Alias] = e
		}
		matches = append(matches, m)
	}

	for _, hop := range plan.Hops {
		if matches, err = c.follow(ctx, matches, hop); err != nil {
			return nil, fmt.Errorf("hop %s: %w", hop.Edge.Alias, err)
		}
		if len(matches) == 0 {
			break
		}
	}
	c.logger.Debug("walk complete", "root", root, "hops", len(plan.Hops), "matches", len(matches))
	return matches, nil
}

// follow binds hop's edge and sink in every match, dropping matches the hop
// cannot extend.
func (c *Connection) follow(ctx context.Context, matches []Match, hop querysql.Hop) ([]Match, error) {
	if hop.Endpoint {
		return c.followEndpoint(ctx, matches, hop)
	}
	x := c.Expander()

	var extended []Match
	for _, m := range matches {
		src, ok := m.Vertex(hop.Source)
		if !ok {
			return nil, fmt.Errorf("source %s is not bound", hop.Source)
		}
		if _, bound := m.Edge(hop.Edge.Alias); bound {
			extended = append(extended, m)
			continue
		}
		edges, err := x.Edges(ctx, src, hop.Edge)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			n := maps.Clone(m)
			n[hop.Edge.Alias] = e
			extended = append(extended, n)
		}
	}
	if hop.Sink == "" {
		return extended, nil
	}

	far := func(m Match) string {
		src, _ := m.Vertex(hop.Source)
		e, _ := m.Edge(hop.Edge.Alias)
		if e.SourceID == src.ID {
			return e.SinkID
		}
		return e.SourceID
	}

	var ids []string
	for _, m := range extended {
		if _, bound := m.Vertex(hop.Sink); !bound {
			ids = append(ids, far(m))
		}
	}
	sinks, err := c.fetchSinks(ctx, hop, ids)
	if err != nil {
		return nil, err
	}

	out := extended[:0]
	for _, m := range extended {
		if n, ok := bindSink(m, hop, far(m), sinks); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// followEndpoint binds hop's sink to an endpoint of the edge already bound
// in every match. Both endpoints yield one match each.
func (c *Connection) followEndpoint(ctx context.Context, matches []Match, hop querysql.Hop) ([]Match, error) {
	ends := make([][]string, len(matches))
	var ids []string
	for i, m := range matches {
		e, ok := m.Edge(hop.Edge.Alias)
		if !ok {
			return nil, fmt.Errorf("edge %s is not bound", hop.Edge.Alias)
		}
		switch hop.End {
		case matchgraph.EndSource:
			ends[i] = []string{e.SourceID}
		case matchgraph.EndSink:
			ends[i] = []string{e.SinkID}
		case matchgraph.EndOther:
			owner, ok := m.Vertex(hop.Source)
			if !ok {
				return nil, fmt.Errorf("source %s is not bound", hop.Source)
			}
			if e.SourceID == owner.ID {
				ends[i] = []string{e.SinkID}
			} else {
				ends[i] = []string{e.SourceID}
			}
		case matchgraph.EndBoth:
			ends[i] = []string{e.SourceID, e.SinkID}
		default:
			return nil, fmt.Errorf("unknown endpoint %v", hop.End)
		}
		if _, bound := m.Vertex(hop.Sink); !bound {
			ids = append(ids, ends[i]...)
		}
	}
	sinks, err := c.fetchSinks(ctx, hop, ids)
	if err != nil {
		return nil, err
	}

	var out []Match
	for i, m := range matches {
		for _, id := range ends[i] {
			if n, ok := bindSink(maps.Clone(m), hop, id, sinks); ok {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// fetchSinks reads the vertices with ids through hop's sink query.
func (c *Connection) fetchSinks(ctx context.Context, hop querysql.Hop, ids []string) (map[string]*VertexField, error) {
	sinks := make(map[string]*VertexField)
	var unique []string
	for _, id := range ids {
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	if hop.SinkQuery == nil || len(unique) == 0 {
		return sinks, nil
	}
	q, err := hop.SinkQuery.WithIDs(c.dialect, unique)
	if err != nil {
		return nil, err
	}
	it, err := c.Portal().GetVertices(ctx, q)
	if err != nil {
		return nil, err
	}
	records, err := it.Collect()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if v, ok := rec.Index(0).(*VertexField); ok {
			sinks[v.ID] = v
		}
	}
	return sinks, nil
}

// bindSink binds hop's sink to the vertex with id. A sink already bound
// must be that vertex; a sink without a query is left unbound.
func bindSink(m Match, hop querysql.Hop, id string, sinks map[string]*VertexField) (Match, bool) {
	if bound, ok := m.Vertex(hop.Sink); ok {
		return m, bound.ID == id
	}
	if hop.SinkQuery == nil {
		return m, true
	}
	v, ok := sinks[id]
	if !ok {
		return nil, false
	}
	m[hop.Sink] = v
	return m, true
}
