package engine

import (
	"strings"

	"github.com/roach88/gview/internal/ir"
)

// Field is one decoded value of a raw record.
//
// This is a sealed interface - only types in this package implement it.
//
// Field types:
//   - *VertexField: a cached vertex
//   - *EdgeField: an edge owned by an adjacency list
//   - *AdjacencyListField: a vertex's forward or reverse edges
//   - *PropertyField: a (possibly multi-valued) property
//   - ValueField: a scalar such as an id or a meta value
type Field interface {
	field() // Marker method - seals interface to this package

	// Value renders the field as a plain IRValue.
	Value() ir.IRValue
}

// ValueField wraps a scalar.
type ValueField struct {
	V ir.IRValue
}

func (ValueField) field() {}

func (f ValueField) Value() ir.IRValue {
	if f.V == nil {
		return ir.IRNull{}
	}
	return f.V
}

// PropertyField is a named property. Vertex properties may hold several
// values; edge properties hold one.
type PropertyField struct {
	Name   string
	Values []ir.IRValue
}

func (*PropertyField) field() {}

// Value returns the single value, or an array when multi-valued.
func (f *PropertyField) Value() ir.IRValue {
	switch len(f.Values) {
	case 0:
		return ir.IRNull{}
	case 1:
		return f.Values[0]
	}
	return ir.IRArray(f.Values)
}

// EdgeField is one edge document of an adjacency list.
type EdgeField struct {
	ID          string
	Label       string
	SourceID    string
	SinkID      string
	SourceLabel string
	SinkLabel   string

	// Doc is the edge document as stored.
	Doc ir.IRObject
}

func (*EdgeField) field() {}

// Value returns the edge as an object of id, label, endpoints and
// user properties.
func (e *EdgeField) Value() ir.IRValue {
	obj := ir.IRObject{
		ir.KeyID:      ir.IRString(e.ID),
		ir.KeyLabel:   ir.IRString(e.Label),
		ir.KeySourceV: ir.IRString(e.SourceID),
		ir.KeySinkV:   ir.IRString(e.SinkID),
	}
	for k, v := range e.Doc {
		if !isEdgeProtocolKey(k) {
			obj[k] = v
		}
	}
	return obj
}

// Property returns a user property of the edge.
func (e *EdgeField) Property(name string) (ir.IRValue, bool) {
	if isEdgeProtocolKey(name) {
		return nil, false
	}
	v, ok := e.Doc[name]
	return v, ok
}

func isEdgeProtocolKey(k string) bool {
	switch k {
	case ir.KeyID, ir.KeyLabel, ir.KeySourceV, ir.KeySinkV, ir.KeySourceVLabel, ir.KeySinkVLabel:
		return true
	}
	return false
}

// AdjacencyListField owns the edges of one direction of a vertex, keyed
// by edge id in insertion order.
type AdjacencyListField struct {
	Reverse bool

	// Spilled is true when the stored list is a {"_spilled": true} marker
	// rather than inline edge documents.
	Spilled bool

	// Expanded is true once the edges of a spilled or unstored list have
	// been loaded client-side.
	Expanded bool

	edges map[string]*EdgeField
	order []string
}

func newAdjacencyList(reverse bool) *AdjacencyListField {
	return &AdjacencyListField{Reverse: reverse, edges: make(map[string]*EdgeField)}
}

func (*AdjacencyListField) field() {}

// Value returns the edges as an array.
func (a *AdjacencyListField) Value() ir.IRValue {
	out := make(ir.IRArray, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.edges[id].Value())
	}
	return out
}

// Put adds e, replacing any edge with the same id in place.
func (a *AdjacencyListField) Put(e *EdgeField) {
	if _, ok := a.edges[e.ID]; !ok {
		a.order = append(a.order, e.ID)
	}
	a.edges[e.ID] = e
}

// Edge returns the edge with id.
func (a *AdjacencyListField) Edge(id string) *EdgeField {
	return a.edges[id]
}

// Edges returns the edges in insertion order.
func (a *AdjacencyListField) Edges() []*EdgeField {
	out := make([]*EdgeField, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.edges[id])
	}
	return out
}

// Len returns the number of edges.
func (a *AdjacencyListField) Len() int {
	return len(a.order)
}

// Materialized reports whether the list's edges are all present.
func (a *AdjacencyListField) Materialized() bool {
	return !a.Spilled || a.Expanded
}

// VertexField is the cached form of a vertex document. It owns its forward
// and reverse adjacency lists.
type VertexField struct {
	ID        string
	Label     string
	Partition string

	Out *AdjacencyListField
	In  *AdjacencyListField

	props map[string]*PropertyField
	names []string
}

func (*VertexField) field() {}

// Value returns the vertex as an object of id, label and properties.
func (v *VertexField) Value() ir.IRValue {
	obj := ir.IRObject{
		ir.KeyID:    ir.IRString(v.ID),
		ir.KeyLabel: ir.IRString(v.Label),
	}
	for _, name := range v.names {
		obj[name] = v.props[name].Value()
	}
	return obj
}

// Adjacency returns the forward or reverse adjacency list.
func (v *VertexField) Adjacency(reverse bool) *AdjacencyListField {
	if reverse {
		return v.In
	}
	return v.Out
}

// Property returns a user property.
func (v *VertexField) Property(name string) (*PropertyField, bool) {
	p, ok := v.props[name]
	return p, ok
}

// PropertyNames returns the user property names in first-seen order.
func (v *VertexField) PropertyNames() []string {
	return v.names
}

// Get resolves a projected name against the vertex: the whole vertex, a
// protocol field, an adjacency list or a user property. It returns nil for
// an absent property.
func (v *VertexField) Get(name string) Field {
	switch name {
	case ir.NodeMarker:
		return v
	case ir.KeyID:
		return ValueField{V: ir.IRString(v.ID)}
	case ir.KeyLabel:
		return ValueField{V: ir.IRString(v.Label)}
	case ir.KeyPartition:
		return partitionField(v.Partition)
	case ir.KeyEdge:
		return v.Out
	case ir.KeyReverseEdge:
		return v.In
	}
	if p, ok := v.props[name]; ok {
		return p
	}
	return nil
}

func (v *VertexField) setProperty(name string, value ir.IRValue) {
	var values []ir.IRValue
	if arr, ok := value.(ir.IRArray); ok {
		values = append(values, arr...)
	} else {
		values = []ir.IRValue{value}
	}
	if _, ok := v.props[name]; !ok {
		v.names = append(v.names, name)
	}
	v.props[name] = &PropertyField{Name: name, Values: values}
}

func partitionField(p string) ValueField {
	if p == "" {
		return ValueField{V: ir.IRNull{}}
	}
	return ValueField{V: ir.IRString(p)}
}

// RawRecord is one decoded row: an ordered, fixed-shape sequence of fields.
// Records reference cached fields; they do not own them.
type RawRecord struct {
	fields []Field
}

// NewRawRecord creates a record with capacity for n fields.
func NewRawRecord(n int) RawRecord {
	return RawRecord{fields: make([]Field, 0, n)}
}

// Append adds one field. A nil field stands for an absent property.
func (r *RawRecord) Append(f Field) {
	r.fields = append(r.fields, f)
}

// AppendRecord adds every field of other.
func (r *RawRecord) AppendRecord(other RawRecord) {
	r.fields = append(r.fields, other.fields...)
}

// Len returns the number of fields.
func (r RawRecord) Len() int {
	return len(r.fields)
}

// Index returns field i, or nil when i is out of range.
func (r RawRecord) Index(i int) Field {
	if i < 0 || i >= len(r.fields) {
		return nil
	}
	return r.fields[i]
}

// Values renders every field as an IRValue; absent fields become null.
func (r RawRecord) Values() ir.IRArray {
	out := make(ir.IRArray, len(r.fields))
	for i, f := range r.fields {
		if f == nil {
			out[i] = ir.IRNull{}
			continue
		}
		out[i] = f.Value()
	}
	return out
}

// String renders the record as compact text, one field per column.
func (r RawRecord) String() string {
	parts := make([]string, len(r.fields))
	for i, v := range r.Values() {
		parts[i] = ir.Text(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
