package matchgraph

import (
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// MatchNode is one bound vertex alias.
type MatchNode struct {
	Alias string

	// NodeTable is the physical table (or collection) the alias ranges over.
	NodeTable string

	// Neighbors are the edges whose source is this node, in insertion order.
	Neighbors []*MatchEdge

	EstimatedRows float64
	TableRowCount int64

	// External is true when the alias was bound by an enclosing query scope.
	External bool

	// GlobalNodeIDDensity is the per-table node-identifier density used for
	// join-selectivity estimation.
	GlobalNodeIDDensity float64

	Predicates []queryir.Boolean

	// IncludedNodeNames lists the physical node tables of a node view.
	IncludedNodeNames []string

	// Properties are the properties projected for this alias.
	Properties []string

	// EndpointOf is set when the node is read from an endpoint field of an
	// edge document instead of being reached through an adjacency list.
	// End selects the endpoint.
	EndpointOf *MatchEdge
	End        EdgeEnd
}

// EdgeEnd selects an endpoint of an edge document.
type EdgeEnd int

const (
	EndSource EdgeEnd = iota
	EndSink
	// EndOther is the endpoint that is not the edge's owning vertex.
	EndOther
	EndBoth
)

func (e EdgeEnd) String() string {
	switch e {
	case EndSource:
		return "source"
	case EndSink:
		return "sink"
	case EndOther:
		return "other"
	case EndBoth:
		return "both"
	}
	return "unknown"
}

// RefAlias is the alias the node is referenced by in emitted text.
// External nodes are referenced through a primed copy.
func (n *MatchNode) RefAlias() string {
	if n.External {
		return n.Alias + "Prime"
	}
	return n.Alias
}

// IsView reports whether the node is a logical view over several node tables.
func (n *MatchNode) IsView() bool {
	return len(n.IncludedNodeNames) > 0
}

// EdgeTable names one physical edge table backing an edge view.
type EdgeTable struct {
	NodeTable string
	Edge      string
}

// EdgeStatistics are backend-provided figures about an edge column.
type EdgeStatistics struct {
	RowCount      int64
	Density       float64
	AverageDegree float64
}

// MatchEdge is one bound edge alias connecting two nodes.
type MatchEdge struct {
	Alias  string
	Source *MatchNode
	Sink   *MatchNode

	// EdgeColumn is the adjacency container the edge is read from:
	// ir.KeyEdge for forward traversal, ir.KeyReverseEdge for reverse.
	// A bidirectional edge reads ir.KeyEdge and then ir.KeyReverseEdge.
	EdgeColumn string
	Direction  queryir.Direction

	// BindNodeTable is the node table owning EdgeColumn.
	BindNodeTable string

	// Labels restricts the edge to these labels (OR-combined). Empty means any.
	Labels []string

	AverageDegree float64
	Predicates    []queryir.Boolean
	Statistics    *EdgeStatistics

	// MinLength and MaxLength bound a variable-length path. [1,1] is a plain edge.
	MinLength int
	MaxLength int

	// IncludedEdgeNames lists the physical edge tables of an edge view.
	IncludedEdgeNames []EdgeTable

	AttributeValues map[string]string

	// Properties are the edge properties projected for this alias.
	Properties []string
}

// NewMatchEdge creates a plain (length [1,1]) forward edge.
func NewMatchEdge(alias string, source, sink *MatchNode) *MatchEdge {
	return &MatchEdge{
		Alias:      alias,
		Source:     source,
		Sink:       sink,
		EdgeColumn: ir.KeyEdge,
		MinLength:  1,
		MaxLength:  1,
	}
}

// IsPath reports whether the edge is a variable-length path.
func (e *MatchEdge) IsPath() bool {
	return !(e.MinLength == 1 && e.MaxLength == 1)
}

// IsView reports whether the edge is a logical view over several edge tables.
func (e *MatchEdge) IsView() bool {
	return len(e.IncludedEdgeNames) > 0
}

// IsReverse reports whether the edge is read from the reverse adjacency list.
func (e *MatchEdge) IsReverse() bool {
	return e.Direction == queryir.Backward
}

// SetDirection sets Direction and the matching EdgeColumn.
func (e *MatchEdge) SetDirection(d queryir.Direction) {
	e.Direction = d
	if d == queryir.Backward {
		e.EdgeColumn = ir.KeyReverseEdge
	} else {
		e.EdgeColumn = ir.KeyEdge
	}
}
