package engine

import (
	"context"
	"fmt"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/querysql"
)

// Expander builds adjacency lists client-side and cross-applies their edges
// into records shaped like server-side cross-apply output.
type Expander struct {
	conn *Connection
}

// Load materializes one adjacency list of v: spilled lists come from the
// spill source, unstored reverse lists from the incoming source. Lists that
// are already complete are returned as they are.
func (x *Expander) Load(ctx context.Context, v *VertexField, reverse bool) (*AdjacencyListField, error) {
	list := v.Adjacency(reverse)
	if list.Expanded {
		return list, nil
	}
	unstored := reverse && !x.conn.useReverseEdges
	if !list.Spilled && !unstored {
		return list, nil
	}

	var (
		docs   []ir.IRObject
		source string
		err    error
	)
	if unstored {
		if x.conn.incoming == nil {
			return nil, fmt.Errorf("vertex %s: reverse edges are not stored and no incoming source is configured", v.ID)
		}
		source = "incoming"
		docs, err = x.conn.incoming.IncomingEdges(ctx, v.ID)
	} else {
		if x.conn.spill == nil {
			return nil, fmt.Errorf("vertex %s: adjacency list is spilled and no spill source is configured", v.ID)
		}
		source = "spill"
		docs, err = x.conn.spill.Edges(ctx, v.ID, reverse)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s edges of %s: %w", source, v.ID, err)
	}

	for _, doc := range docs {
		e, err := decodeEdge(doc, v, reverse)
		if err != nil {
			return nil, err
		}
		list.Put(e)
	}
	list.Expanded = true
	expansionsTotal.WithLabelValues(source).Inc()
	x.conn.logger.Debug("adjacency list expanded", "vertex", v.ID, "reverse", reverse, "source", source, "edges", len(docs))
	return list, nil
}

// Edges returns the edges of v selected by exp, loading lists as needed.
// A bidirectional expansion lists outgoing edges before incoming ones.
func (x *Expander) Edges(ctx context.Context, v *VertexField, exp querysql.EdgeExpansion) ([]*EdgeField, error) {
	selected, err := x.selectEdges(ctx, v, exp)
	if err != nil {
		return nil, err
	}
	out := make([]*EdgeField, len(selected))
	for i, s := range selected {
		out[i] = s.edge
	}
	return out, nil
}

type selectedEdge struct {
	edge    *EdgeField
	reverse bool
}

func (x *Expander) selectEdges(ctx context.Context, v *VertexField, exp querysql.EdgeExpansion) ([]selectedEdge, error) {
	directions := []bool{exp.Reverse}
	if exp.Both {
		directions = []bool{false, true}
	}

	var out []selectedEdge
	for _, reverse := range directions {
		list, err := x.Load(ctx, v, reverse)
		if err != nil {
			return nil, err
		}
		for _, e := range list.Edges() {
			ok, err := edgeMatches(e, exp.Alias, exp.Labels, exp.Predicates)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, selectedEdge{edge: e, reverse: reverse})
			}
		}
	}
	return out, nil
}

// CrossApply extends a vertex record (as produced for a lazily built row)
// with one edge block per selected edge of its vertex.
func (x *Expander) CrossApply(ctx context.Context, rec RawRecord, exp querysql.EdgeExpansion) ([]RawRecord, error) {
	v, ok := rec.Index(0).(*VertexField)
	if !ok {
		return nil, fmt.Errorf("record does not start with a vertex")
	}
	selected, err := x.selectEdges(ctx, v, exp)
	if err != nil {
		return nil, err
	}
	out := make([]RawRecord, 0, len(selected))
	for _, s := range selected {
		r := NewRawRecord(rec.Len() + len(EdgeMetaFields) + len(exp.Properties))
		r.AppendRecord(rec)
		r.AppendRecord(edgeBlock(s.edge, v, exp.StartIsOrigin, s.reverse, exp.Properties))
		out = append(out, r)
	}
	recordsTotal.WithLabelValues(modeExpanded).Add(float64(len(out)))
	return out, nil
}
