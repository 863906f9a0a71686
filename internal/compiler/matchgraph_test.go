package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/queryir"
)

func TestMatchGraphAttachesPredicates(t *testing.T) {
	c, err := Compile(T(V{}, As{Labels: []string{"a"}}, Out{Labels: []string{"knows"}}, Has{Key: "name", Value: "josh"}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)
	require.Len(t, g.Components, 1)
	assert.Equal(t, "N_0", g.Components[0].Root().Alias)

	edge, ok := g.TryGetEdge("E_1")
	require.True(t, ok)
	assert.Equal(t, "N_0", edge.Source.Alias)
	assert.Equal(t, "N_2", edge.Sink.Alias)
	assert.Equal(t, []string{"knows"}, edge.Labels)
	assert.Equal(t, ir.KeyEdge, edge.EdgeColumn)
	assert.Empty(t, edge.Properties)
	assert.Equal(t, []queryir.Boolean{compare("E_1", "label", queryir.OpEq, ir.IRString("knows"))}, edge.Predicates)

	sink, ok := g.TryGetNode("N_2")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, sink.Properties)
	assert.Equal(t, []queryir.Boolean{compare("N_2", "name", queryir.OpEq, ir.IRString("josh"))}, sink.Predicates)
}

func TestMatchGraphTailNode(t *testing.T) {
	c, err := Compile(T(V{}, InE{}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)

	assert.False(t, g.ContainsNode("E_1_source"))
	_, ok := g.TryGetNode("E_1_source")
	assert.True(t, ok)

	edge, ok := g.TryGetEdge("E_1")
	require.True(t, ok)
	assert.True(t, edge.IsReverse())
	assert.Equal(t, ir.KeyReverseEdge, edge.EdgeColumn)
	assert.Equal(t, []string{ir.NodeMarker}, edge.Properties, "an edge pivot is read whole")
}

func TestMatchGraphJoinedEndpoint(t *testing.T) {
	c, err := Compile(T(V{}, Has{Key: "name", Value: "josh"}, OutE{Labels: []string{"created"}}, OutV{}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)
	require.Len(t, g.Components, 1)
	assert.Equal(t, "N_0", g.Components[0].Root().Alias)
	assert.True(t, g.ContainsNode("N_2"))
	assert.Empty(t, g.Residual, "the endpoint join is carried by the graph")
	assert.Empty(t, g.Unmatched)

	n, ok := g.TryGetNode("N_2")
	require.True(t, ok)
	edge, ok := g.TryGetEdge("E_1")
	require.True(t, ok)
	assert.Same(t, edge, n.EndpointOf)
	assert.Equal(t, matchgraph.EndSource, n.End)
	assert.Empty(t, n.Predicates)
}

func TestMatchGraphEndpointKinds(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		end   matchgraph.EdgeEnd
	}{
		{"outV", []Step{V{}, OutE{}, OutV{}}, matchgraph.EndSource},
		{"inV of incoming", []Step{V{}, InE{}, InV{}}, matchgraph.EndSink},
		{"otherV", []Step{V{}, OutE{}, OtherV{}}, matchgraph.EndOther},
		{"bothV", []Step{V{}, OutE{}, BothV{}}, matchgraph.EndBoth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(T(tt.steps...))
			require.NoError(t, err)

			g, err := c.MatchGraph()
			require.NoError(t, err)
			assert.Empty(t, g.Residual)
			assert.Empty(t, g.Unmatched)

			n, ok := g.TryGetNode("N_2")
			require.True(t, ok)
			require.NotNil(t, n.EndpointOf)
			assert.Equal(t, "E_1", n.EndpointOf.Alias)
			assert.Equal(t, tt.end, n.End)
		})
	}
}

func TestMatchGraphFarEndIsNotAnEndpoint(t *testing.T) {
	c, err := Compile(T(V{}, OutE{}, InV{}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)
	n, ok := g.TryGetNode("N_2")
	require.True(t, ok)
	assert.Nil(t, n.EndpointOf)
	edge, ok := g.TryGetEdge("E_1")
	require.True(t, ok)
	assert.Same(t, n, edge.Sink)
}

func TestMatchGraphKeepsSubTraversalFilters(t *testing.T) {
	created := T(Out{Labels: []string{"created"}})
	knows := T(Out{Labels: []string{"knows"}})
	tests := []struct {
		name string
		step Step
	}{
		{"where", Where{Traversal: &created}},
		{"not", Not{Traversal: created}},
		{"and", And{Traversals: []Traversal{created, knows}}},
		{"or", Or{Traversals: []Traversal{created, knows}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(T(V{}, tt.step))
			require.NoError(t, err)

			g, err := c.MatchGraph()
			require.NoError(t, err)
			assert.NotEmpty(t, g.Residual)
			root, ok := g.TryGetNode("N_0")
			require.True(t, ok)
			assert.Empty(t, root.Predicates)
		})
	}
}

func TestMatchGraphAttachesPropertyExistence(t *testing.T) {
	c, err := Compile(T(V{}, HasNot{Key: "nick"}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)
	assert.Empty(t, g.Residual)
	n, ok := g.TryGetNode("N_0")
	require.True(t, ok)
	require.Len(t, n.Predicates, 1)
	_, isNot := n.Predicates[0].(queryir.Not)
	assert.True(t, isNot)
}

func TestMatchGraphUnmatchedSources(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
	}{
		{"limit", []Step{V{}, Limit{N: 2}}},
		{"dedup", []Step{V{}, Out{}, Dedup{}}},
		{"count", []Step{V{}, Count{}}},
		{"free edges", []Step{E{}}},
		{"free edge endpoint", []Step{E{}, OutV{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(T(tt.steps...))
			require.NoError(t, err)

			g, err := c.MatchGraph()
			require.NoError(t, err)
			pivot, err := c.Pivot().Name()
			require.NoError(t, err)
			assert.Contains(t, g.Unmatched, pivot)
		})
	}
}

func TestMatchGraphSeparateStarts(t *testing.T) {
	c, err := Compile(T(V{}, As{Labels: []string{"a"}}, V{}))
	require.NoError(t, err)

	g, err := c.MatchGraph()
	require.NoError(t, err)
	assert.Len(t, g.Components, 2)
}

func TestMatchGraphInsideChild(t *testing.T) {
	c, err := Compile(T(V{}))
	require.NoError(t, err)
	child := c.Child()
	require.NoError(t, child.Apply(Out{}))

	g, err := child.MatchGraph()
	require.NoError(t, err)
	outer, ok := g.TryGetNode("N_0")
	require.True(t, ok)
	assert.True(t, outer.External)
	assert.Equal(t, "N_2", g.Components[0].Root().Alias)
}
