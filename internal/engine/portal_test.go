package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/querysql"
)

func crossApplyQuery() querysql.JsonQuery {
	return querysql.JsonQuery{
		SelectClause:   "N_0.doc AS N_0, E_1.value AS E_1",
		JoinClause:     `JOIN json_each(N_0.doc,'$."_edge"') AS E_1`,
		Alias:          "N_0",
		NodeProperties: []string{"N_0", "name"},
		EdgeProperties: []string{"E_1", "false", "true", "weight"},
	}
}

func vertexQuery() querysql.JsonQuery {
	return querysql.JsonQuery{
		SelectClause:   "N_0.doc AS N_0",
		Alias:          "N_0",
		NodeProperties: []string{"N_0", "name"},
	}
}

func queryText(t *testing.T, q querysql.JsonQuery) string {
	t.Helper()
	text, err := q.String(querysql.DialectSQL)
	require.NoError(t, err)
	return text
}

func TestGetVerticesCrossApplyDedupsByEdge(t *testing.T) {
	e1 := outEdge("e1", "knows", "2", ir.O("weight", ir.IRFloat(0.5)))
	e2 := outEdge("e2", "knows", "3")
	marko := vertexDoc("1",
		ir.O("name", ir.IRArray{ir.IRString("marko"), ir.IRString("mark")}),
		ir.O(ir.KeyEdge, edgeList(e1, e2)),
	)

	q := crossApplyQuery()
	// Two name values fan every edge out twice.
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": marko, "E_1": e1},
		{"N_0": marko, "E_1": e1},
		{"N_0": marko, "E_1": e2},
		{"N_0": marko, "E_1": e2},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	require.Equal(t, 2+len(EdgeMetaFields)+1, first.Len())
	v := first.Index(0).(*VertexField)
	assert.Equal(t, "1", v.ID)
	assert.Equal(t, ir.IRArray{ir.IRString("marko"), ir.IRString("mark")}, first.Index(1).Value())
	assert.Equal(t, ir.IRString("1"), first.Index(2).Value(), "source")
	assert.Equal(t, ir.IRString("2"), first.Index(3).Value(), "sink")
	assert.Equal(t, ir.IRString("2"), first.Index(4).Value(), "other")
	assert.Equal(t, ir.IRString("e1"), first.Index(5).Value(), "edge id")
	assert.Equal(t, ir.IRNull{}, first.Index(6).Value(), "partition")
	assert.Equal(t, "e1", first.Index(7).(*EdgeField).ID)
	assert.Equal(t, ir.IRFloat(0.5), first.Index(8).Value())

	second := records[1]
	assert.Equal(t, ir.IRString("e2"), second.Index(5).Value())
	assert.Nil(t, second.Index(8), "absent edge property")

	assert.Equal(t, 1, conn.Cache().Len())
	assert.Same(t, v, second.Index(0))
	assert.Equal(t, 1, b.cursors[0].closes)
}

func TestGetVerticesLazyDedupsByVertex(t *testing.T) {
	doc := vertexDoc("1", ir.O("name", ir.IRString("marko")), ir.O(ir.KeyEdge, spilled))

	q := crossApplyQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": doc, "E_1": ir.IRInt(1)},
		{"N_0": doc, "E_1": ir.IRInt(1)},
		{"N_0": doc, "E_1": ir.IRInt(1)},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Len(), "lazy records carry no edge block")

	v, ok := conn.Cache().Get("1")
	require.True(t, ok)
	assert.True(t, v.Out.Spilled)
	assert.False(t, v.Out.Materialized())
}

func TestGetVerticesLazyDuplicateMergesProperties(t *testing.T) {
	first := vertexDoc("1", ir.O("name", ir.IRString("marko")), ir.O(ir.KeyEdge, spilled))
	second := vertexDoc("1", ir.O("name", ir.IRString("marko")), ir.O("age", ir.IRInt(29)), ir.O(ir.KeyEdge, spilled))

	q := crossApplyQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": first, "E_1": ir.IRInt(1)},
		{"N_0": second, "E_1": ir.IRInt(1)},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 1)

	v := records[0].Index(0).(*VertexField)
	assert.Equal(t, ir.IRInt(29), v.Get("age").Value(), "skipped row still merges into the cache")
}

func TestGetVerticesChoosesStrategyPerRow(t *testing.T) {
	e1 := outEdge("e1", "knows", "3")
	inline := vertexDoc("1", ir.O(ir.KeyEdge, edgeList(e1)))
	big := vertexDoc("2", ir.O(ir.KeyEdge, spilled))

	q := crossApplyQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": inline, "E_1": e1},
		{"N_0": big, "E_1": ir.IRInt(1)},
		{"N_0": inline, "E_1": e1},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2+len(EdgeMetaFields)+1, records[0].Len())
	assert.Equal(t, 2, records[1].Len())
	assert.Equal(t, "2", records[1].Index(0).(*VertexField).ID)
}

func TestGetVerticesUnstoredReverseIsLazy(t *testing.T) {
	doc := vertexDoc("1")
	q := crossApplyQuery()
	q.EdgeProperties = []string{"E_1", "true", "true", "weight"}

	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": doc, "E_1": inEdge("e1", "knows", "2")},
		{"N_0": doc, "E_1": inEdge("e2", "knows", "3")},
	}}}
	conn := newTestConnection(b, WithReverseEdges(false))

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Len())
}

func TestGetVerticesVertexOnly(t *testing.T) {
	doc := vertexDoc("1", ir.O("name", ir.IRString("marko")))
	q := vertexQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": doc},
		{"N_0": doc},
		{"N_0": vertexDoc("2")},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	records, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ir.IRString("marko"), records[0].Index(1).Value())
	assert.Nil(t, records[1].Index(1), "vertex 2 has no name")
}

func TestGetVerticesCacheAcrossQueries(t *testing.T) {
	q := vertexQuery()
	text := queryText(t, q)
	b := &fakeBackend{responses: map[string][]Row{text: {{"N_0": vertexDoc("1", ir.O("name", ir.IRString("marko")))}}}}
	conn := newTestConnection(b)

	records, err := mustIterate(t, conn, q)
	require.NoError(t, err)
	first := records[0].Index(0).(*VertexField)

	b.responses[text] = []Row{{"N_0": vertexDoc("1", ir.O("age", ir.IRInt(29)))}}
	records, err = mustIterate(t, conn, q)
	require.NoError(t, err)

	assert.Same(t, first, records[0].Index(0))
	assert.Equal(t, 1, conn.Cache().Len())
	name, ok := first.Property("name")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("marko"), name.Value())
	age, ok := first.Property("age")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(29), age.Value())
}

func mustIterate(t *testing.T, conn *Connection, q querysql.JsonQuery) ([]RawRecord, error) {
	t.Helper()
	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	return it.Collect()
}

func TestGetVerticesDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
		code DecodeErrorCode
	}{
		{"missing vertex column", []Row{{"N_1": vertexDoc("1")}}, ErrCodeMissingField},
		{"vertex not an object", []Row{{"N_0": ir.IRString("1")}}, ErrCodeMalformedDocument},
		{"vertex without id", []Row{{"N_0": ir.IRObject{"label": ir.IRString("x")}}}, ErrCodeMissingField},
		{"adjacency not a list", []Row{{"N_0": vertexDoc("1", ir.O(ir.KeyEdge, ir.IRString("oops"))), "E_1": outEdge("e1", "knows", "2")}}, ErrCodeMalformedAdjacency},
		{"object without marker", []Row{{"N_0": vertexDoc("1", ir.O(ir.KeyEdge, ir.IRObject{"x": ir.IRInt(1)})), "E_1": outEdge("e1", "knows", "2")}}, ErrCodeMalformedAdjacency},
		{"missing edge column", []Row{{"N_0": vertexDoc("1", ir.O(ir.KeyEdge, edgeList(outEdge("e1", "knows", "2"))))}}, ErrCodeMissingField},
		{"edge column not an object", []Row{{"N_0": vertexDoc("1", ir.O(ir.KeyEdge, edgeList(outEdge("e1", "knows", "2")))), "E_1": ir.IRInt(3)}}, ErrCodeMalformedAdjacency},
		{"unknown edge", []Row{{"N_0": vertexDoc("1", ir.O(ir.KeyEdge, edgeList())), "E_1": outEdge("e9", "knows", "2")}}, ErrCodeUnknownEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := crossApplyQuery()
			b := &fakeBackend{responses: map[string][]Row{queryText(t, q): tt.rows}}
			conn := newTestConnection(b)

			it, err := conn.Portal().GetVertices(context.Background(), q)
			require.NoError(t, err)
			assert.False(t, it.Next())

			var de *DecodeError
			require.True(t, errors.As(it.Err(), &de), "got %v", it.Err())
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, 1, b.cursors[0].closes)
		})
	}
}

func TestGetVerticesErrorAfterRecords(t *testing.T) {
	q := vertexQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": vertexDoc("1")},
		{"N_0": ir.IRNull{}},
		{"N_0": vertexDoc("3")},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "1", it.Record().Index(0).(*VertexField).ID)
	assert.False(t, it.Next())
	assert.True(t, IsDecodeError(it.Err()))
	assert.False(t, it.Next(), "a failed sequence stays finished")
}

func TestGetVerticesBackendError(t *testing.T) {
	boom := errors.New("backend unavailable")
	conn := newTestConnection(&fakeBackend{err: boom})

	_, err := conn.Portal().GetVertices(context.Background(), vertexQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, IsDecodeError(err))
}

func TestGetVerticesBadLayout(t *testing.T) {
	conn := newTestConnection(&fakeBackend{})

	_, err := conn.Portal().GetVertices(context.Background(), querysql.JsonQuery{Alias: "N_0", SelectClause: "x"})
	assert.Error(t, err)

	q := crossApplyQuery()
	q.EdgeProperties = []string{"E_1", "maybe", "true"}
	_, err = conn.Portal().GetVertices(context.Background(), q)
	assert.Error(t, err)
}

func TestRecordIteratorEarlyClose(t *testing.T) {
	q := vertexQuery()
	b := &fakeBackend{responses: map[string][]Row{queryText(t, q): {
		{"N_0": vertexDoc("1")},
		{"N_0": vertexDoc("2")},
	}}}
	conn := newTestConnection(b)

	it, err := conn.Portal().GetVertices(context.Background(), q)
	require.NoError(t, err)
	require.True(t, it.Next())

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, 1, b.cursors[0].closes)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Equal(t, 1, conn.Cache().Len(), "only pulled rows are decoded")
}

func TestFillMetaField(t *testing.T) {
	tests := []struct {
		name          string
		edge          *EdgeField
		reverse       bool
		startIsOrigin bool
		want          []string
	}{
		{
			name:          "forward from origin",
			edge:          &EdgeField{ID: "e1", SourceID: "1", SinkID: "2"},
			startIsOrigin: true,
			want:          []string{"1", "2", "2", "e1"},
		},
		{
			name:          "reverse from origin",
			edge:          &EdgeField{ID: "e1", SourceID: "2", SinkID: "1"},
			reverse:       true,
			startIsOrigin: true,
			want:          []string{"2", "1", "2", "e1"},
		},
		{
			name: "forward toward origin",
			edge: &EdgeField{ID: "e1", SourceID: "1", SinkID: "2"},
			want: []string{"1", "2", "1", "e1"},
		},
		{
			name:    "reverse toward origin",
			edge:    &EdgeField{ID: "e1", SourceID: "2", SinkID: "1"},
			reverse: true,
			want:    []string{"2", "1", "1", "e1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec RawRecord
			FillMetaField(&rec, tt.edge, "1", "p1", tt.startIsOrigin, tt.reverse)
			require.Equal(t, len(EdgeMetaFields), rec.Len())
			for i, want := range tt.want {
				assert.Equal(t, ir.IRString(want), rec.Index(i).Value(), EdgeMetaFields[i])
			}
			assert.Equal(t, ir.IRString("p1"), rec.Index(4).Value())
			assert.Same(t, tt.edge, rec.Index(5))
		})
	}
}
