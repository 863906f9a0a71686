package testutil

import (
	"github.com/roach88/gview/internal/ir"
)

// SpilledList is an adjacency list stored outside its vertex document.
type SpilledList struct {
	VertexID string
	Reverse  bool
	Edges    []ir.IRObject
}

// Graph is a set of vertex documents plus the lists spilled out of them.
type Graph struct {
	Vertices []ir.IRObject
	Spilled  []SpilledList
}

// Vertex returns the document with id, or nil.
func (g Graph) Vertex(id string) ir.IRObject {
	for _, v := range g.Vertices {
		if v[ir.KeyID] == ir.IRString(id) {
			return v
		}
	}
	return nil
}

type modernEdge struct {
	id, label, src, sink string
	weight               float64
}

var modernVertices = []struct {
	id, label string
	props     ir.IRObject
}{
	{"1", "person", ir.IRObject{"name": ir.IRString("marko"), "age": ir.IRInt(29)}},
	{"2", "person", ir.IRObject{"name": ir.IRString("vadas"), "age": ir.IRInt(27)}},
	{"3", "software", ir.IRObject{"name": ir.IRString("lop"), "lang": ir.IRString("java")}},
	{"4", "person", ir.IRObject{"name": ir.IRString("josh"), "age": ir.IRInt(32)}},
	{"5", "software", ir.IRObject{"name": ir.IRString("ripple"), "lang": ir.IRString("java")}},
	{"6", "person", ir.IRObject{"name": ir.IRString("peter"), "age": ir.IRInt(35)}},
}

var modernEdges = []modernEdge{
	{"7", "knows", "1", "2", 0.5},
	{"8", "knows", "1", "4", 1.0},
	{"9", "created", "1", "3", 0.4},
	{"10", "created", "4", "5", 1.0},
	{"11", "created", "4", "3", 0.4},
	{"12", "created", "6", "3", 0.2},
}

// Modern returns the six-vertex "modern" graph: four people, two pieces
// of software, knows and created edges with weights. Every vertex stores
// both adjacency lists inline.
func Modern() Graph {
	labels := make(map[string]string)
	docs := make(map[string]ir.IRObject)
	var g Graph
	for _, v := range modernVertices {
		doc := v.props.Clone()
		doc[ir.KeyID] = ir.IRString(v.id)
		doc[ir.KeyLabel] = ir.IRString(v.label)
		doc[ir.KeyEdge] = ir.IRArray{}
		doc[ir.KeyReverseEdge] = ir.IRArray{}
		labels[v.id] = v.label
		docs[v.id] = doc
		g.Vertices = append(g.Vertices, doc)
	}

	for _, e := range modernEdges {
		out := ir.IRObject{
			ir.KeyEdgeID:     ir.IRString(e.id),
			ir.KeyLabel:      ir.IRString(e.label),
			ir.KeySinkV:      ir.IRString(e.sink),
			ir.KeySinkVLabel: ir.IRString(labels[e.sink]),
			"weight":         ir.IRFloat(e.weight),
		}
		in := ir.IRObject{
			ir.KeyEdgeID:       ir.IRString(e.id),
			ir.KeyLabel:        ir.IRString(e.label),
			ir.KeySourceV:      ir.IRString(e.src),
			ir.KeySourceVLabel: ir.IRString(labels[e.src]),
			"weight":           ir.IRFloat(e.weight),
		}
		src, sink := docs[e.src], docs[e.sink]
		src[ir.KeyEdge] = append(src[ir.KeyEdge].(ir.IRArray), out)
		sink[ir.KeyReverseEdge] = append(sink[ir.KeyReverseEdge].(ir.IRArray), in)
	}
	return g
}

// ModernSpilled is Modern with josh's (4) outgoing list moved to the
// spill store and replaced by the spilled marker.
func ModernSpilled() Graph {
	g := Modern()
	josh := g.Vertex("4")
	var edges []ir.IRObject
	for _, e := range josh[ir.KeyEdge].(ir.IRArray) {
		edges = append(edges, e.(ir.IRObject))
	}
	josh[ir.KeyEdge] = ir.IRObject{ir.KeySpilled: ir.IRBool(true)}
	g.Spilled = append(g.Spilled, SpilledList{VertexID: "4", Edges: edges})
	return g
}

// Fixture returns a named graph fixture.
func Fixture(name string) (Graph, bool) {
	switch name {
	case "modern":
		return Modern(), true
	case "modern-spilled":
		return ModernSpilled(), true
	}
	return Graph{}, false
}
