package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/querysql"
)

// EdgeMetaFields are the leading fields of every edge block, in order.
// Requested edge properties follow them.
var EdgeMetaFields = []string{
	ir.KeySourceV,
	ir.KeySinkV,
	ir.KeyOtherV,
	ir.KeyEdgeID,
	ir.KeyPartition,
	ir.NodeMarker,
}

// Portal executes vertex queries on a connection and decodes the rows.
type Portal struct {
	conn *Connection
}

// recordLayout is the shape of the records a query produces, read from its
// property lists.
type recordLayout struct {
	nodeAlias string
	nodeProps []string

	crossApply    bool
	edgeAlias     string
	reverse       bool
	startIsOrigin bool
	edgeProps     []string
}

func parseLayout(q querysql.JsonQuery) (recordLayout, error) {
	if len(q.NodeProperties) == 0 {
		return recordLayout{}, fmt.Errorf("query %s has no node properties", q.Alias)
	}
	l := recordLayout{nodeAlias: q.NodeProperties[0], nodeProps: q.NodeProperties[1:]}
	if len(q.EdgeProperties) == 0 {
		return l, nil
	}
	if len(q.EdgeProperties) < 3 {
		return recordLayout{}, fmt.Errorf("query %s: edge properties need alias, direction and origin", q.Alias)
	}
	var err error
	l.crossApply = true
	l.edgeAlias = q.EdgeProperties[0]
	if l.reverse, err = strconv.ParseBool(q.EdgeProperties[1]); err != nil {
		return recordLayout{}, fmt.Errorf("query %s: reverse flag: %w", q.Alias, err)
	}
	if l.startIsOrigin, err = strconv.ParseBool(q.EdgeProperties[2]); err != nil {
		return recordLayout{}, fmt.Errorf("query %s: origin flag: %w", q.Alias, err)
	}
	l.edgeProps = q.EdgeProperties[3:]
	return l, nil
}

// NodeWidth is the number of fields a record of q has before its edge block:
// the vertex itself followed by the requested node properties.
func NodeWidth(q querysql.JsonQuery) int {
	return len(q.NodeProperties)
}

// GetVertices executes q and returns its records lazily.
//
// Each record starts with the vertex field and the requested node
// properties. When q cross-applies an edge, rows whose adjacency list is
// stored inline carry an edge block (see EdgeMetaFields) and are
// deduplicated by edge id; rows whose list must be built client-side carry
// only the vertex part and are deduplicated by vertex id. The choice is made
// for every row.
func (p *Portal) GetVertices(ctx context.Context, q querysql.JsonQuery) (*RecordIterator, error) {
	c := p.conn
	layout, err := parseLayout(q)
	if err != nil {
		return nil, err
	}
	text, err := q.String(c.dialect)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "engine.Portal.GetVertices",
		trace.WithAttributes(
			attribute.String("session", c.sessionID),
			attribute.String("dialect", string(c.dialect)),
			attribute.String("alias", layout.nodeAlias),
			attribute.Bool("cross_apply", layout.crossApply),
		),
	)

	cursor, err := c.backend.ExecuteQuery(ctx, text)
	if err != nil {
		queriesTotal.WithLabelValues(string(c.dialect), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "query execution failed")
		span.End()
		return nil, fmt.Errorf("execute query for %s: %w", layout.nodeAlias, err)
	}
	queriesTotal.WithLabelValues(string(c.dialect), "ok").Inc()
	c.logger.Debug("query executed", "alias", layout.nodeAlias, "cross_apply", layout.crossApply, "query", text)

	d := &rowDecoder{
		conn:     c,
		cursor:   cursor,
		layout:   layout,
		vertices: make(map[string]struct{}),
		edges:    make(map[string]struct{}),
	}
	return &RecordIterator{next: d.next, cursor: cursor, span: span}, nil
}

// rowDecoder turns backend rows into records, holding the per-query dedup
// sets.
type rowDecoder struct {
	conn     *Connection
	cursor   Cursor
	layout   recordLayout
	vertices map[string]struct{}
	edges    map[string]struct{}
}

func (d *rowDecoder) next() (RawRecord, bool, error) {
	l := d.layout
	for d.cursor.Next() {
		row, err := d.cursor.Row()
		if err != nil {
			return RawRecord{}, false, fmt.Errorf("read row: %w", err)
		}
		raw, ok := row[l.nodeAlias]
		if !ok {
			return RawRecord{}, false, missingField("", l.nodeAlias, "row has no vertex column")
		}
		doc, ok := raw.(ir.IRObject)
		if !ok {
			return RawRecord{}, false, malformedDocument("", l.nodeAlias, "vertex column is %T", raw)
		}
		id, err := requiredString(doc, "", ir.KeyID)
		if err != nil {
			return RawRecord{}, false, err
		}

		if l.crossApply && !IsBuildingLazily(doc, l.reverse, d.conn.useReverseEdges) {
			rec, emit, err := d.crossApplied(row, id, doc)
			if err != nil {
				return RawRecord{}, false, err
			}
			if emit {
				recordsTotal.WithLabelValues(modeCrossApply).Inc()
				return rec, true, nil
			}
			continue
		}

		if _, seen := d.vertices[id]; seen {
			if _, err := d.conn.cache.AddOrUpdate(id, doc); err != nil {
				return RawRecord{}, false, err
			}
			duplicatesSkipped.WithLabelValues("vertex").Inc()
			continue
		}
		d.vertices[id] = struct{}{}
		vf, err := d.conn.cache.AddOrUpdate(id, doc)
		if err != nil {
			return RawRecord{}, false, err
		}
		recordsTotal.WithLabelValues(modeLazy).Inc()
		return vertexRecord(vf, l.nodeProps), true, nil
	}
	if err := d.cursor.Err(); err != nil {
		return RawRecord{}, false, fmt.Errorf("read rows: %w", err)
	}
	return RawRecord{}, false, nil
}

func (d *rowDecoder) crossApplied(row Row, id string, doc ir.IRObject) (RawRecord, bool, error) {
	l := d.layout
	key := ir.AdjacencyKey(l.reverse)

	raw, ok := row[l.edgeAlias]
	if !ok {
		return RawRecord{}, false, missingField(id, l.edgeAlias, "row has no edge column")
	}
	edgeDoc, ok := raw.(ir.IRObject)
	if !ok {
		return RawRecord{}, false, malformedAdjacency(id, key, "cross-applied edge is %T, not an object", raw)
	}
	edgeID, err := requiredString(edgeDoc, id, ir.KeyEdgeID)
	if err != nil {
		return RawRecord{}, false, err
	}
	if _, seen := d.edges[edgeID]; seen {
		duplicatesSkipped.WithLabelValues("edge").Inc()
		return RawRecord{}, false, nil
	}
	d.edges[edgeID] = struct{}{}

	vf, err := d.conn.cache.AddOrUpdate(id, doc)
	if err != nil {
		return RawRecord{}, false, err
	}
	edge := vf.Adjacency(l.reverse).Edge(edgeID)
	if edge == nil {
		return RawRecord{}, false, &DecodeError{
			Code:     ErrCodeUnknownEdge,
			Message:  fmt.Sprintf("edge %s is not in the adjacency list", edgeID),
			VertexID: id,
			Field:    key,
		}
	}

	rec := vertexRecord(vf, l.nodeProps)
	rec.AppendRecord(edgeBlock(edge, vf, l.startIsOrigin, l.reverse, l.edgeProps))
	return rec, true, nil
}

// vertexRecord is the vertex field followed by the requested properties.
func vertexRecord(vf *VertexField, props []string) RawRecord {
	rec := NewRawRecord(len(props) + 1)
	rec.Append(vf)
	for _, p := range props {
		rec.Append(vf.Get(p))
	}
	return rec
}

func edgeBlock(e *EdgeField, start *VertexField, startIsOrigin, reverse bool, props []string) RawRecord {
	block := NewRawRecord(len(EdgeMetaFields) + len(props))
	FillMetaField(&block, e, start.ID, start.Partition, startIsOrigin, reverse)
	FillPropertyField(&block, e, props)
	return block
}

// FillMetaField appends the edge meta block: source id, sink id, the vertex
// on the far side from the traversal origin, edge id, partition and the
// edge itself. startID is the vertex whose adjacency list holds the edge.
func FillMetaField(rec *RawRecord, e *EdgeField, startID, partition string, startIsOrigin, reverse bool) {
	src, sink := startID, e.SinkID
	if reverse {
		src, sink = e.SourceID, startID
	}
	other := startID
	if startIsOrigin {
		other = sink
		if reverse {
			other = src
		}
	}
	rec.Append(ValueField{V: ir.IRString(src)})
	rec.Append(ValueField{V: ir.IRString(sink)})
	rec.Append(ValueField{V: ir.IRString(other)})
	rec.Append(ValueField{V: ir.IRString(e.ID)})
	rec.Append(partitionField(partition))
	rec.Append(e)
}

// FillPropertyField appends one field per requested edge property; absent
// properties append nil.
func FillPropertyField(rec *RawRecord, e *EdgeField, props []string) {
	for _, p := range props {
		v, ok := e.Property(p)
		if !ok {
			rec.Append(nil)
			continue
		}
		rec.Append(&PropertyField{Name: p, Values: []ir.IRValue{v}})
	}
}

// RecordIterator is a lazy, finite, non-restartable sequence of records
// pulled from a backend cursor. Close releases the cursor; it is called
// automatically once the sequence ends or fails.
type RecordIterator struct {
	next   func() (RawRecord, bool, error)
	cursor Cursor
	span   trace.Span

	rec      RawRecord
	err      error
	closed   bool
	closeErr error
	count    int
}

// Next advances to the next record. It returns false when the sequence is
// exhausted, has failed or was closed.
func (it *RecordIterator) Next() bool {
	if it.closed {
		return false
	}
	rec, ok, err := it.next()
	if err != nil {
		it.err = err
		it.Close()
		return false
	}
	if !ok {
		it.Close()
		return false
	}
	it.rec = rec
	it.count++
	return true
}

// Record returns the current record.
func (it *RecordIterator) Record() RawRecord {
	return it.rec
}

// Err returns the error that ended the sequence, if any.
func (it *RecordIterator) Err() error {
	return it.err
}

// Close releases the cursor. Calling Close more than once is safe.
func (it *RecordIterator) Close() error {
	if it.closed {
		return it.closeErr
	}
	it.closed = true
	it.rec = RawRecord{}
	it.closeErr = it.cursor.Close()

	it.span.SetAttributes(attribute.Int("records", it.count))
	if it.err != nil {
		it.span.RecordError(it.err)
		it.span.SetStatus(codes.Error, "decode failed")
	}
	it.span.End()
	return it.closeErr
}

// Collect drains the iterator into a slice and closes it.
func (it *RecordIterator) Collect() ([]RawRecord, error) {
	defer it.Close()
	var out []RawRecord
	for it.Next() {
		out = append(out, it.Record())
	}
	return out, it.Err()
}
