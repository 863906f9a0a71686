package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/queryir"
)

// PlanOptions configures query emission.
type PlanOptions struct {
	Dialect Dialect

	// UseReverseEdges is true when the backend stores incoming adjacency
	// lists. Without them a reverse edge is never cross-applied.
	UseReverseEdges bool
}

// EdgeExpansion describes how one pattern edge is read from the vertex it
// is reached from.
type EdgeExpansion struct {
	Alias string

	// Reverse is true when the edge is read from the incoming adjacency list.
	Reverse bool

	// Both reads the outgoing and then the incoming adjacency list.
	Both bool

	// StartIsOrigin is false when the edge is walked from its pattern sink.
	StartIsOrigin bool

	Labels     []string
	Predicates []queryir.Boolean

	// Properties are the requested edge properties, meta fields excluded.
	Properties []string

	// CrossApplied is true when the edge documents come back joined to the
	// vertex rows instead of being expanded client-side.
	CrossApplied bool
}

// Column is the adjacency list the expansion reads first.
func (e EdgeExpansion) Column() string {
	return ir.AdjacencyKey(e.Reverse)
}

// Hop is one pattern edge walked from an already-reached node.
type Hop struct {
	Source string
	Sink   string
	Edge   EdgeExpansion

	// SinkQuery fetches the sink vertices by id; nil when the sink is a
	// tail or bound by an enclosing scope.
	SinkQuery *JsonQuery

	// Endpoint is true when the hop reads no adjacency list: Sink is bound
	// to the End endpoint of the edge an earlier hop bound, and Source is
	// that edge's owning vertex.
	Endpoint bool
	End      matchgraph.EdgeEnd
}

// PlannedQuery is the emitted query for one connected component plus the
// walk over the rest of the component, breadth-first from the root.
type PlannedQuery struct {
	Query JsonQuery
	Hops  []Hop
}

// RootEdge returns the hop read from the root vertex, if any.
func (p PlannedQuery) RootEdge() (Hop, bool) {
	if len(p.Hops) > 0 && p.Hops[0].Source == p.Query.Alias && !p.Hops[0].Endpoint {
		return p.Hops[0], true
	}
	return Hop{}, false
}

// Plan emits one query per connected component root. The root's first edge
// is cross-applied when the dialect supports joins, the edge projects
// properties, and its adjacency list is stored by the backend.
func Plan(g *matchgraph.Graph, opts PlanOptions) ([]PlannedQuery, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot plan nil graph")
	}
	if opts.Dialect == "" {
		opts.Dialect = DialectSQL
	}
	if _, err := newClauseWriter(opts.Dialect, "", ""); err != nil {
		return nil, err
	}
	if len(g.Unmatched) > 0 {
		return nil, fmt.Errorf("%s: no pattern form: %w", strings.Join(g.Unmatched, ", "), ErrNotImplemented)
	}
	if len(g.Residual) > 0 {
		return nil, fmt.Errorf("predicate over %s is not evaluated by the pattern walk: %w",
			strings.Join(queryir.Aliases(g.Residual[0]), ", "), ErrUnsupported)
	}

	var out []PlannedQuery
	for _, comp := range g.Components {
		root := comp.Root()
		if root == nil || root.External || comp.IsTail(root) {
			continue
		}
		hops := walk(comp, root)

		var edge *EdgeExpansion
		if len(hops) > 0 && hops[0].Source == root.Alias && !hops[0].Endpoint {
			e := &hops[0].Edge
			e.CrossApplied = crossApplies(*e, opts)
			if e.CrossApplied {
				edge = e
			}
		}

		q, err := nodeQuery(opts.Dialect, root, edge)
		if err != nil {
			return nil, fmt.Errorf("component rooted at %s: %w", root.Alias, err)
		}

		for i := range hops {
			sink, ok := comp.Node(hops[i].Sink)
			if !ok || sink.External || comp.IsTail(sink) {
				continue
			}
			sq, err := nodeQuery(opts.Dialect, sink, nil)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", sink.Alias, err)
			}
			hops[i].SinkQuery = &sq
		}
		out = append(out, PlannedQuery{Query: q, Hops: hops})
	}
	return out, nil
}

func crossApplies(e EdgeExpansion, opts PlanOptions) bool {
	if opts.Dialect != DialectSQL || e.Both || len(e.Properties) == 0 {
		return false
	}
	return !e.Reverse || opts.UseReverseEdges
}

// walk lists the component's edges breadth-first from root. Each edge is
// walked once, from whichever end is reached first, and is followed by the
// endpoint hops of the nodes read from it.
func walk(comp *matchgraph.ConnectedComponent, root *matchgraph.MatchNode) []Hop {
	var hops []Hop
	used := make(map[*matchgraph.MatchEdge]bool)
	reached := map[*matchgraph.MatchNode]bool{root: true}
	queue := []*matchgraph.MatchNode{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range comp.Edges() {
			if used[e] || (e.Source != n && e.Sink != n) {
				continue
			}
			used[e] = true

			exp := EdgeExpansion{
				Alias:         e.Alias,
				Reverse:       e.IsReverse(),
				Both:          e.Direction == queryir.Both,
				StartIsOrigin: true,
				Labels:        e.Labels,
				Predicates:    e.Predicates,
				Properties:    edgeProperties(e.Properties),
			}
			far := e.Sink
			if e.Source != n {
				far = e.Source
				exp.Reverse = !exp.Reverse
				exp.StartIsOrigin = false
			}
			hop := Hop{Source: n.Alias, Edge: exp}
			if far != nil {
				hop.Sink = far.Alias
				if !reached[far] && !comp.IsTail(far) && !far.External {
					reached[far] = true
					queue = append(queue, far)
				}
			}
			hops = append(hops, hop)

			for _, end := range comp.Nodes() {
				if end.EndpointOf != e {
					continue
				}
				hops = append(hops, Hop{
					Source:   e.Source.Alias,
					Sink:     end.Alias,
					Edge:     EdgeExpansion{Alias: e.Alias, StartIsOrigin: true},
					Endpoint: true,
					End:      end.End,
				})
				if !reached[end] {
					reached[end] = true
					queue = append(queue, end)
				}
			}
		}
	}
	return hops
}

func edgeProperties(props []string) []string {
	var out []string
	for _, p := range props {
		if p != ir.NodeMarker {
			out = append(out, p)
		}
	}
	return out
}

// nodeQuery emits the query over node, cross-applying edge when non-nil.
func nodeQuery(d Dialect, node *matchgraph.MatchNode, edge *EdgeExpansion) (JsonQuery, error) {
	edgeAlias := ""
	if edge != nil {
		edgeAlias = edge.Alias
	}
	w, err := newClauseWriter(d, node.Alias, edgeAlias)
	if err != nil {
		return JsonQuery{}, err
	}

	var where []string
	for _, p := range node.Predicates {
		s, err := w.nodePredicate(p)
		if err != nil {
			return JsonQuery{}, err
		}
		where = append(where, s)
	}

	q := JsonQuery{
		Alias:          node.Alias,
		SelectClause:   w.selectClause(edgeAlias),
		NodeProperties: append([]string{node.Alias}, node.Properties...),
	}

	var joins []string
	if edge != nil {
		joins = append(joins, w.edgeJoin(edge.Alias, edge.Column()))
		for _, p := range edge.Predicates {
			s, err := w.edgePredicate(p, edge.Column())
			if err != nil {
				return JsonQuery{}, fmt.Errorf("edge %s: %w", edge.Alias, err)
			}
			if s != "" {
				where = append(where, s)
			}
		}
		q.EdgeProperties = append([]string{
			edge.Alias,
			strconv.FormatBool(edge.Reverse),
			strconv.FormatBool(edge.StartIsOrigin),
		}, edge.Properties...)
	}
	joins = append(joins, w.joins()...)

	q.JoinClause = strings.Join(joins, " ")
	q.WhereSearchCondition = strings.Join(where, " AND ")
	return q, nil
}

// WithIDs restricts the query to vertices with the given ids.
func (q JsonQuery) WithIDs(d Dialect, ids []string) (JsonQuery, error) {
	if len(ids) == 0 {
		return JsonQuery{}, fmt.Errorf("id filter needs at least one id")
	}
	w, err := newClauseWriter(d, q.Alias, "")
	if err != nil {
		return JsonQuery{}, err
	}
	filter := w.idFilter(ids)
	if q.WhereSearchCondition == "" {
		q.WhereSearchCondition = filter
	} else {
		q.WhereSearchCondition = filter + " AND " + q.WhereSearchCondition
	}
	return q, nil
}
