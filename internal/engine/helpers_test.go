package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gview/internal/ir"
)

// fakeBackend answers query texts with canned rows.
type fakeBackend struct {
	responses map[string][]Row
	err       error
	queries   []string
	cursors   []*fakeCursor
}

func (b *fakeBackend) ExecuteQuery(_ context.Context, text string) (Cursor, error) {
	b.queries = append(b.queries, text)
	if b.err != nil {
		return nil, b.err
	}
	rows, ok := b.responses[text]
	if !ok {
		return nil, fmt.Errorf("unexpected query: %s", text)
	}
	c := &fakeCursor{rows: rows, pos: -1}
	b.cursors = append(b.cursors, c)
	return c, nil
}

type fakeCursor struct {
	rows   []Row
	pos    int
	closes int
	err    error
}

func (c *fakeCursor) Next() bool {
	if c.closes > 0 || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Row() (Row, error) { return c.rows[c.pos], nil }
func (c *fakeCursor) Err() error        { return c.err }

func (c *fakeCursor) Close() error {
	c.closes++
	return nil
}

// fakeSpill serves spilled and incoming edge documents.
type fakeSpill struct {
	forward  map[string][]ir.IRObject
	reverse  map[string][]ir.IRObject
	incoming map[string][]ir.IRObject
	loads    int
}

func (s *fakeSpill) Edges(_ context.Context, vertexID string, reverse bool) ([]ir.IRObject, error) {
	s.loads++
	if reverse {
		return s.reverse[vertexID], nil
	}
	return s.forward[vertexID], nil
}

func (s *fakeSpill) IncomingEdges(_ context.Context, vertexID string) ([]ir.IRObject, error) {
	s.loads++
	return s.incoming[vertexID], nil
}

func newTestConnection(b Backend, opts ...ConnectionOption) *Connection {
	base := []ConnectionOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(NewFixedGenerator("session-1")),
	}
	return NewConnection(b, append(base, opts...)...)
}

func vertexDoc(id string, fields ...ir.IRPair) ir.IRObject {
	obj := ir.NewIRObjectFromPairs(fields...)
	obj[ir.KeyID] = ir.IRString(id)
	if _, ok := obj[ir.KeyLabel]; !ok {
		obj[ir.KeyLabel] = ir.IRString("person")
	}
	return obj
}

func outEdge(id, label, sink string, props ...ir.IRPair) ir.IRObject {
	obj := ir.NewIRObjectFromPairs(props...)
	obj[ir.KeyEdgeID] = ir.IRString(id)
	obj[ir.KeyLabel] = ir.IRString(label)
	obj[ir.KeySinkV] = ir.IRString(sink)
	obj[ir.KeySinkVLabel] = ir.IRString("person")
	return obj
}

func inEdge(id, label, source string, props ...ir.IRPair) ir.IRObject {
	obj := ir.NewIRObjectFromPairs(props...)
	obj[ir.KeyEdgeID] = ir.IRString(id)
	obj[ir.KeyLabel] = ir.IRString(label)
	obj[ir.KeySourceV] = ir.IRString(source)
	obj[ir.KeySourceVLabel] = ir.IRString("person")
	return obj
}

func edgeList(docs ...ir.IRObject) ir.IRArray {
	out := make(ir.IRArray, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

var spilled = ir.IRObject{ir.KeySpilled: ir.IRBool(true)}
