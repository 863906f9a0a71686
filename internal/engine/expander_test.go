package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
	"github.com/roach88/gview/internal/querysql"
)

func cachedVertex(t *testing.T, conn *Connection, doc ir.IRObject) *VertexField {
	t.Helper()
	id := string(doc[ir.KeyID].(ir.IRString))
	v, err := conn.Cache().AddOrUpdate(id, doc)
	require.NoError(t, err)
	return v
}

func TestExpanderLoadsSpilledList(t *testing.T) {
	spill := &fakeSpill{forward: map[string][]ir.IRObject{
		"1": {outEdge("e1", "knows", "2"), outEdge("e2", "created", "3")},
	}}
	conn := newTestConnection(&fakeBackend{}, WithSpillSource(spill))
	v := cachedVertex(t, conn, vertexDoc("1", ir.O(ir.KeyEdge, spilled)))

	list, err := conn.Expander().Load(context.Background(), v, false)
	require.NoError(t, err)
	assert.True(t, list.Expanded)
	assert.True(t, list.Materialized())
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, "1", list.Edge("e2").SourceID)

	_, err = conn.Expander().Load(context.Background(), v, false)
	require.NoError(t, err)
	assert.Equal(t, 1, spill.loads, "an expanded list is not loaded again")
}

func TestExpanderInlineListIsNotLoaded(t *testing.T) {
	spill := &fakeSpill{}
	conn := newTestConnection(&fakeBackend{}, WithSpillSource(spill))
	v := cachedVertex(t, conn, vertexDoc("1", ir.O(ir.KeyEdge, edgeList(outEdge("e1", "knows", "2")))))

	list, err := conn.Expander().Load(context.Background(), v, false)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
	assert.Equal(t, 0, spill.loads)
}

func TestExpanderRebuildsUnstoredReverseList(t *testing.T) {
	spill := &fakeSpill{incoming: map[string][]ir.IRObject{
		"2": {inEdge("e1", "knows", "1")},
	}}
	conn := newTestConnection(&fakeBackend{}, WithReverseEdges(false), WithIncomingSource(spill))
	v := cachedVertex(t, conn, vertexDoc("2"))

	edges, err := conn.Expander().Edges(context.Background(), v, querysql.EdgeExpansion{Alias: "E_1", Reverse: true})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "1", edges[0].SourceID)
	assert.Equal(t, "2", edges[0].SinkID)
}

func TestExpanderMissingSource(t *testing.T) {
	conn := newTestConnection(&fakeBackend{})
	v := cachedVertex(t, conn, vertexDoc("1", ir.O(ir.KeyEdge, spilled)))
	_, err := conn.Expander().Load(context.Background(), v, false)
	assert.Error(t, err)

	conn = newTestConnection(&fakeBackend{}, WithReverseEdges(false))
	v = cachedVertex(t, conn, vertexDoc("1"))
	_, err = conn.Expander().Load(context.Background(), v, true)
	assert.Error(t, err)
}

func TestExpanderFiltersEdges(t *testing.T) {
	conn := newTestConnection(&fakeBackend{})
	v := cachedVertex(t, conn, vertexDoc("1", ir.O(ir.KeyEdge, edgeList(
		outEdge("e1", "knows", "2", ir.O("weight", ir.IRFloat(0.5))),
		outEdge("e2", "knows", "4", ir.O("weight", ir.IRFloat(1.0))),
		outEdge("e3", "created", "3", ir.O("weight", ir.IRFloat(0.4))),
	))))

	exp := querysql.EdgeExpansion{
		Alias:  "E_1",
		Labels: []string{"knows"},
		Predicates: []queryir.Boolean{queryir.Compare{
			Left:  queryir.ColumnRef{Table: "E_1", Column: "weight"},
			Op:    queryir.OpGt,
			Right: queryir.Literal{Value: ir.IRFloat(0.7)},
		}},
	}
	edges, err := conn.Expander().Edges(context.Background(), v, exp)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "e2", edges[0].ID)
}

func TestExpanderBothDirections(t *testing.T) {
	conn := newTestConnection(&fakeBackend{})
	v := cachedVertex(t, conn, vertexDoc("1",
		ir.O(ir.KeyEdge, edgeList(outEdge("e1", "knows", "2"))),
		ir.O(ir.KeyReverseEdge, edgeList(inEdge("e9", "knows", "9"))),
	))

	edges, err := conn.Expander().Edges(context.Background(), v, querysql.EdgeExpansion{Alias: "E_1", Both: true})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e9", edges[1].ID)
}

func TestExpanderCrossApply(t *testing.T) {
	spill := &fakeSpill{forward: map[string][]ir.IRObject{
		"1": {outEdge("e1", "knows", "2", ir.O("weight", ir.IRFloat(0.5))), outEdge("e2", "knows", "3")},
	}}
	conn := newTestConnection(&fakeBackend{}, WithSpillSource(spill))
	v := cachedVertex(t, conn, vertexDoc("1", ir.O("name", ir.IRString("marko")), ir.O(ir.KeyEdge, spilled)))
	rec := vertexRecord(v, []string{"name"})

	out, err := conn.Expander().CrossApply(context.Background(), rec, querysql.EdgeExpansion{
		Alias:         "E_1",
		StartIsOrigin: true,
		Properties:    []string{"weight"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, rec.Len()+len(EdgeMetaFields)+1, out[0].Len())
	assert.Equal(t, ir.IRString("marko"), out[0].Index(1).Value())
	assert.Equal(t, ir.IRString("2"), out[0].Index(4).Value(), "other end")
	assert.Equal(t, ir.IRFloat(0.5), out[0].Index(8).Value())
	assert.Equal(t, ir.IRString("e2"), out[1].Index(5).Value())
	assert.Nil(t, out[1].Index(8))
	assert.Equal(t, 2, rec.Len(), "the input record is not modified")
}

func TestExpanderCrossApplyNeedsVertex(t *testing.T) {
	conn := newTestConnection(&fakeBackend{})
	rec := NewRawRecord(1)
	rec.Append(ValueField{V: ir.IRString("x")})

	_, err := conn.Expander().CrossApply(context.Background(), rec, querysql.EdgeExpansion{Alias: "E_1"})
	assert.Error(t, err)
}
