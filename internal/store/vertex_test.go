package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
)

func person(id, name string, edges ...ir.IRValue) ir.IRObject {
	doc := ir.IRObject{
		ir.KeyID:    ir.IRString(id),
		ir.KeyLabel: ir.IRString("person"),
		"name":      ir.IRString(name),
	}
	if len(edges) > 0 {
		doc[ir.KeyEdge] = ir.IRArray(edges)
	}
	return doc
}

func knows(id, sink string, weight float64) ir.IRObject {
	return ir.IRObject{
		ir.KeyEdgeID:     ir.IRString(id),
		ir.KeyLabel:      ir.IRString("knows"),
		ir.KeySinkV:      ir.IRString(sink),
		ir.KeySinkVLabel: ir.IRString("person"),
		"weight":         ir.IRFloat(weight),
	}
}

func TestPutVertexRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := person("1", "marko", knows("7", "2", 0.5))
	require.NoError(t, s.PutVertex(ctx, doc))

	got, ok, err := s.Vertex(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ir.Equal(doc, got), "got %s", ir.Text(got))

	_, ok, err = s.Vertex(ctx, "404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutVertexReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutVertex(ctx, person("1", "marko")))
	require.NoError(t, s.PutVertex(ctx, person("1", "marko")))
	require.NoError(t, s.PutVertex(ctx, person("1", "mark")))

	got, _, err := s.Vertex(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("mark"), got["name"])

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM Node").Scan(&count))
	assert.Equal(t, 1, count)

	var hash string
	require.NoError(t, s.db.QueryRow("SELECT hash FROM Node WHERE id = '1'").Scan(&hash))
	assert.Equal(t, ir.MustDocumentHash(person("1", "mark")), hash)
}

func TestPutVertexRequiresID(t *testing.T) {
	s := openTestStore(t)

	err := s.PutVertex(context.Background(), ir.IRObject{ir.KeyLabel: ir.IRString("person")})
	assert.Error(t, err)
	err = s.PutVertex(context.Background(), ir.IRObject{ir.KeyID: ir.IRInt(1)})
	assert.Error(t, err)
}

func TestPutVerticesIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.PutVertices(ctx, []ir.IRObject{person("1", "marko"), {ir.KeyLabel: ir.IRString("broken")}})
	require.Error(t, err)

	_, ok, err := s.Vertex(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok, "a failed batch writes nothing")

	require.NoError(t, s.PutVertices(ctx, []ir.IRObject{person("1", "marko"), person("2", "vadas")}))
	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Vertices)
}

func TestStatistics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	big := person("3", "josh")
	big[ir.KeyEdge] = ir.IRObject{ir.KeySpilled: ir.IRBool(true)}
	require.NoError(t, s.PutVertices(ctx, []ir.IRObject{
		person("1", "marko", knows("7", "2", 0.5), knows("8", "4", 1.0)),
		person("2", "vadas"),
		big,
	}))

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Vertices: 3, Edges: 2, Spilled: 1}, st)
}

func TestStatisticsEmpty(t *testing.T) {
	s := openTestStore(t)
	st, err := s.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestGraphStatistics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := knows("9", "3", 0.4)
	created[ir.KeyLabel] = ir.IRString("created")
	spilled := person("4", "josh")
	spilled[ir.KeyEdge] = ir.IRObject{ir.KeySpilled: ir.IRBool(true)}
	require.NoError(t, s.PutVertices(ctx, []ir.IRObject{
		person("1", "marko", knows("7", "2", 0.5), knows("8", "4", 1.0), created),
		person("2", "vadas"),
		person("3", "lop"),
		spilled,
	}))

	st, err := s.GraphStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Node": 4}, st.RowCount)
	assert.Equal(t, map[string]float64{"knows": 0.5, "created": 0.25}, st.AverageDegree)
}

func TestGraphStatisticsEmpty(t *testing.T) {
	s := openTestStore(t)
	st, err := s.GraphStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.RowCount["Node"])
	assert.Empty(t, st.AverageDegree)
}
