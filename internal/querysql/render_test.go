package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

func col(table, column string) queryir.ColumnRef {
	return queryir.ColumnRef{Table: table, Column: column}
}

func lit(v ir.IRValue) queryir.Literal {
	return queryir.Literal{Value: v}
}

func eq(table, column string, v ir.IRValue) queryir.Compare {
	return queryir.Compare{Left: col(table, column), Op: queryir.OpEq, Right: lit(v)}
}

func propertiesExists(alias, fnAlias, key string) queryir.Exists {
	return queryir.Exists{Block: &queryir.SelectBlock{
		Select: []queryir.SelectElement{{Expr: queryir.Star{Table: fnAlias}, Alias: fnAlias}},
		From: []queryir.TableRef{queryir.TableFunction{
			Name:    "Properties",
			Args:    []queryir.Scalar{queryir.Star{Table: alias}, lit(ir.IRString(key))},
			Alias:   fnAlias,
			Columns: []string{ir.DefaultColumn},
		}},
	}}
}

func TestRenderGolden(t *testing.T) {
	block := &queryir.SelectBlock{
		Select: []queryir.SelectElement{
			{Expr: queryir.Star{Table: "N_2"}, Alias: "N_2"},
			{Expr: col("N_2", "name"), Alias: "N_2_name"},
		},
		From: []queryir.TableRef{
			queryir.NamedTable{Name: "Node", Alias: "N_0"},
			queryir.NamedTable{Name: "Node", Alias: "N_2"},
			queryir.TableFunction{
				Name:    "Properties",
				Args:    []queryir.Scalar{queryir.Star{Table: "N_2"}, lit(ir.IRString("age"))},
				Alias:   "S_3",
				Columns: []string{ir.DefaultColumn},
			},
		},
		Match: []queryir.MatchPath{{Source: "N_0", Edge: "E_1", Sink: "N_2"}},
		Where: queryir.And{Terms: []queryir.Boolean{
			eq("E_1", "label", ir.IRString("knows")),
			queryir.Or{Terms: []queryir.Boolean{
				queryir.Compare{Left: col("N_2", "age"), Op: queryir.OpGt, Right: lit(ir.IRInt(29))},
				queryir.In{Expr: col("N_2", "name"), Values: []queryir.Scalar{lit(ir.IRString("josh")), lit(ir.IRString("peter"))}},
			}},
			queryir.Not{Expr: propertiesExists("N_2", "S_5", "nick")},
		}},
	}

	out, err := Render(block)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render_out_where", []byte(out+"\n"))
}

func TestRenderMatchDirections(t *testing.T) {
	tests := []struct {
		path queryir.MatchPath
		want string
	}{
		{queryir.MatchPath{Source: "N_0", Edge: "E_1", Sink: "N_2"}, "N_0-[Edge AS E_1]->N_2"},
		{queryir.MatchPath{Source: "N_0", Edge: "E_1", Sink: "N_2", Direction: queryir.Backward}, "N_0<-[Edge AS E_1]-N_2"},
		{queryir.MatchPath{Source: "N_0", Edge: "E_1", Sink: "N_2", Direction: queryir.Both}, "N_0-[Edge AS E_1]-N_2"},
		{queryir.MatchPath{Source: "N_0", Edge: "E_1"}, "N_0-[Edge AS E_1]->()"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, renderMatchPath(tt.path))
		})
	}
}

func TestRenderPrecedence(t *testing.T) {
	a := eq("N_0", "a", ir.IRInt(1))
	b := eq("N_0", "b", ir.IRInt(2))
	c := eq("N_0", "c", ir.IRInt(3))

	tests := []struct {
		name string
		expr queryir.Boolean
		want string
	}{
		{"or inside and", queryir.And{Terms: []queryir.Boolean{a, queryir.Or{Terms: []queryir.Boolean{b, c}}}},
			"N_0.a = 1 AND (N_0.b = 2 OR N_0.c = 3)"},
		{"and inside or", queryir.Or{Terms: []queryir.Boolean{a, queryir.And{Terms: []queryir.Boolean{b, c}}}},
			"N_0.a = 1 OR N_0.b = 2 AND N_0.c = 3"},
		{"not connective", queryir.Not{Expr: queryir.And{Terms: []queryir.Boolean{a, b}}},
			"NOT (N_0.a = 1 AND N_0.b = 2)"},
		{"not compare", queryir.Not{Expr: a}, "NOT N_0.a = 1"},
		{"empty and", queryir.And{}, "TRUE"},
		{"empty or", queryir.Or{}, "FALSE"},
		{"empty in", queryir.In{Expr: col("N_0", "a")}, "1 = 0"},
		{"empty not in", queryir.In{Expr: col("N_0", "a"), Negated: true}, "1 = 1"},
		{"pointer", &queryir.Compare{Left: col("N_0", "a"), Op: queryir.OpLte, Right: lit(ir.IRFloat(0.5))}, "N_0.a <= 0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderBoolean(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderLiterals(t *testing.T) {
	assert.Equal(t, "NULL", renderLiteral(ir.IRNull{}))
	assert.Equal(t, "NULL", renderLiteral(nil))
	assert.Equal(t, "'it''s'", renderLiteral(ir.IRString("it's")))
	assert.Equal(t, "true", renderLiteral(ir.IRBool(true)))
	assert.Equal(t, "'[1,2]'", renderLiteral(ir.IRArray{ir.IRInt(1), ir.IRInt(2)}))

	s, err := renderScalar(col("N_0", "first name"))
	require.NoError(t, err)
	assert.Equal(t, `N_0."first name"`, s)
}

func TestRenderNil(t *testing.T) {
	_, err := Render(nil)
	assert.Error(t, err)
}
