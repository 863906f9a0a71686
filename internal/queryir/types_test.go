package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gview/internal/ir"
)

func eq(table, column string, v ir.IRValue) Boolean {
	return Compare{Left: ColumnRef{Table: table, Column: column}, Op: OpEq, Right: Literal{Value: v}}
}

func TestConjoinAndFlattens(t *testing.T) {
	a := eq("N_0", "name", ir.IRString("marko"))
	b := eq("N_0", "age", ir.IRInt(29))
	c := eq("N_1", "lang", ir.IRString("java"))

	got := ConjoinAnd(ConjoinAnd(a, b), c)

	assert.Equal(t, And{Terms: []Boolean{a, b, c}}, got)
}

func TestConjoinNilSides(t *testing.T) {
	a := eq("N_0", "name", ir.IRString("marko"))

	assert.Equal(t, a, ConjoinAnd(nil, a))
	assert.Equal(t, a, ConjoinOr(a, nil))
	assert.Nil(t, ConjoinAnd(nil, nil))
}

func TestConjoinKeepsMixedConnectives(t *testing.T) {
	a := eq("N_0", "x", ir.IRInt(1))
	b := eq("N_0", "y", ir.IRInt(2))
	c := eq("N_0", "z", ir.IRInt(3))

	or := ConjoinOr(a, b)
	got := ConjoinAnd(or, c)

	// The Or stays a single term of the And: grouping is preserved.
	assert.Equal(t, And{Terms: []Boolean{Or{Terms: []Boolean{a, b}}, c}}, got)
}

func TestAliasesDescendsIntoSubqueries(t *testing.T) {
	sub := &SelectBlock{
		Select: []SelectElement{{Expr: Star{Table: "S_3"}}},
		From: []TableRef{TableFunction{
			Name:  "Properties",
			Args:  []Scalar{ColumnRef{Table: "N_0", Column: "age"}},
			Alias: "S_3",
		}},
	}
	expr := ConjoinAnd(
		eq("N_2", "name", ir.IRString("josh")),
		Not{Expr: Exists{Block: sub}},
	)

	assert.Equal(t, []string{"N_2", "S_3", "N_0"}, Aliases(expr))
}

func TestNestedBindings(t *testing.T) {
	props := Exists{Block: &SelectBlock{
		Select: []SelectElement{{Expr: Star{Table: "S_3"}}},
		From:   []TableRef{TableFunction{Name: "Properties", Args: []Scalar{Star{Table: "N_0"}}, Alias: "S_3"}},
	}}
	funcs, tables := NestedBindings(Not{Expr: props})
	assert.Equal(t, []string{"S_3"}, funcs)
	assert.Empty(t, tables)

	out := Exists{Block: &SelectBlock{
		Select: []SelectElement{{Expr: Star{Table: "N_2"}}},
		From:   []TableRef{NamedTable{Name: "Node", Alias: "N_2"}},
		Match:  []MatchPath{{Source: "N_0", Edge: "E_1", Sink: "N_2"}},
		Where:  eq("E_1", "label", ir.IRString("created")),
	}}
	funcs, tables = NestedBindings(ConjoinAnd(eq("N_0", "name", ir.IRString("josh")), out))
	assert.Empty(t, funcs)
	assert.Equal(t, []string{"N_2", "E_1"}, tables)

	funcs, tables = NestedBindings(eq("N_0", "name", ir.IRString("josh")))
	assert.Empty(t, funcs)
	assert.Empty(t, tables)
}

func TestSealedInterfaces(t *testing.T) {
	var _ Scalar = ColumnRef{}
	var _ Scalar = Star{}
	var _ Scalar = Literal{}
	var _ Scalar = FunctionCall{}
	var _ Scalar = ScalarSubquery{}
	var _ Boolean = Compare{}
	var _ Boolean = In{}
	var _ Boolean = And{}
	var _ Boolean = Or{}
	var _ Boolean = Not{}
	var _ Boolean = Exists{}
	var _ Boolean = True{}
	var _ TableRef = NamedTable{}
	var _ TableRef = TableFunction{}
}
