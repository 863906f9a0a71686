package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
)

func TestModernShape(t *testing.T) {
	g := Modern()
	require.Len(t, g.Vertices, 6)
	assert.Empty(t, g.Spilled)

	var out, in int
	for _, v := range g.Vertices {
		out += len(v[ir.KeyEdge].(ir.IRArray))
		in += len(v[ir.KeyReverseEdge].(ir.IRArray))
	}
	assert.Equal(t, 6, out)
	assert.Equal(t, 6, in)

	marko := g.Vertex("1")
	require.NotNil(t, marko)
	assert.Len(t, marko[ir.KeyEdge], 3)
	assert.Len(t, g.Vertex("3")[ir.KeyReverseEdge], 3)
	assert.Nil(t, g.Vertex("404"))
}

func TestModernIsFresh(t *testing.T) {
	a := Modern()
	a.Vertex("1")["name"] = ir.IRString("changed")
	assert.Equal(t, ir.IRString("marko"), Modern().Vertex("1")["name"])
}

func TestModernSpilled(t *testing.T) {
	g := ModernSpilled()
	josh := g.Vertex("4")
	assert.Equal(t, ir.IRObject{ir.KeySpilled: ir.IRBool(true)}, josh[ir.KeyEdge])
	require.Len(t, g.Spilled, 1)
	assert.Equal(t, "4", g.Spilled[0].VertexID)
	assert.False(t, g.Spilled[0].Reverse)
	assert.Len(t, g.Spilled[0].Edges, 2)
}

func TestFixture(t *testing.T) {
	_, ok := Fixture("modern")
	assert.True(t, ok)
	_, ok = Fixture("modern-spilled")
	assert.True(t, ok)
	_, ok = Fixture("classic")
	assert.False(t, ok)
}

func TestFixedSessionGenerator(t *testing.T) {
	g := NewFixedSessionGenerator("s-1")
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "test-session", NewFixedSessionGenerator("").Generate())
}
