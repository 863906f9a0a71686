package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/predicate"
	"github.com/roach88/gview/internal/queryir"
)

func compare(alias, col string, op queryir.CompareOp, v ir.IRValue) queryir.Compare {
	return queryir.Compare{
		Left:  queryir.ColumnRef{Table: alias, Column: col},
		Op:    op,
		Right: queryir.Literal{Value: v},
	}
}

func TestCountDuplicatesAndResets(t *testing.T) {
	c, err := Compile(T(V{}, Out{}, Count{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"S_3"}, names(t, c.Variables))
	assert.Equal(t, []string{"S_3"}, names(t, c.FromRefs))
	assert.Nil(t, c.Predicates)

	count, ok := c.Pivot().(*FunctionVariable)
	require.True(t, ok)
	assert.Equal(t, "Count", count.Func)
	assert.Equal(t, TypeScalar, count.Type())
	require.Len(t, count.Subqueries, 1)
	assert.Equal(t, []string{"N_0", "E_1", "N_2"}, names(t, count.Subqueries[0].Variables))
}

func TestCountLocalKeepsContext(t *testing.T) {
	c, err := Compile(T(V{}, Fold{}, Count{Scope: ScopeLocal}))
	require.NoError(t, err)

	assert.Equal(t, []string{"R_1", "S_2"}, names(t, c.Variables))
	local := c.Pivot().(*FunctionVariable)
	assert.Equal(t, "CountLocal", local.Func)
	assert.Same(t, c.Variables[0], local.Input)
}

func TestHasPredicates(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  queryir.Boolean
	}{
		{
			name:  "literal",
			value: "josh",
			want:  compare("N_0", "name", queryir.OpEq, ir.IRString("josh")),
		},
		{
			name:  "gt",
			value: predicate.Gt(ir.IRInt(29)),
			want:  compare("N_0", "name", queryir.OpGt, ir.IRInt(29)),
		},
		{
			name:  "within",
			value: predicate.Within(ir.IRString("a"), ir.IRString("b")),
			want: queryir.In{
				Expr:   queryir.ColumnRef{Table: "N_0", Column: "name"},
				Values: []queryir.Scalar{queryir.Literal{Value: ir.IRString("a")}, queryir.Literal{Value: ir.IRString("b")}},
			},
		},
		{
			name:  "between",
			value: predicate.Between(ir.IRInt(1), ir.IRInt(5)),
			want: queryir.And{Terms: []queryir.Boolean{
				compare("N_0", "name", queryir.OpGte, ir.IRInt(1)),
				compare("N_0", "name", queryir.OpLt, ir.IRInt(5)),
			}},
		},
		{
			name: "and below or",
			value: predicate.Or(
				predicate.And(predicate.Gt(ir.IRInt(1)), predicate.Lt(ir.IRInt(5))),
				predicate.Eq(ir.IRInt(10)),
			),
			want: queryir.Or{Terms: []queryir.Boolean{
				queryir.And{Terms: []queryir.Boolean{
					compare("N_0", "name", queryir.OpGt, ir.IRInt(1)),
					compare("N_0", "name", queryir.OpLt, ir.IRInt(5)),
				}},
				compare("N_0", "name", queryir.OpEq, ir.IRInt(10)),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(T(V{}, Has{Key: "name", Value: tt.value}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Predicates)
			assert.Equal(t, []string{"name"}, c.Pivot().ProjectedProperties())
		})
	}
}

func TestHasWithoutValueChecksExistence(t *testing.T) {
	c, err := Compile(T(V{}, Has{Key: "name"}))
	require.NoError(t, err)

	exists, ok := c.Predicates.(queryir.Exists)
	require.True(t, ok, "got %T", c.Predicates)
	assert.Equal(t, []queryir.TableRef{queryir.TableFunction{
		Name:    "Properties",
		Args:    []queryir.Scalar{queryir.Star{Table: "N_0"}, queryir.Literal{Value: ir.IRString("name")}},
		Alias:   "S_1",
		Columns: []string{ir.DefaultColumn},
	}}, exists.Block.From)
	assert.Nil(t, exists.Block.Where)
	assert.Equal(t, []string{"name"}, c.Pivot().ProjectedProperties())

	c, err = Compile(T(V{}, HasNot{Key: "name"}))
	require.NoError(t, err)
	not, ok := c.Predicates.(queryir.Not)
	require.True(t, ok, "got %T", c.Predicates)
	assert.IsType(t, queryir.Exists{}, not.Expr)
}

func TestHasLabelOrsValues(t *testing.T) {
	c, err := Compile(T(V{}, HasLabel{Values: []any{"person", "software"}}))
	require.NoError(t, err)

	assert.Equal(t, queryir.Or{Terms: []queryir.Boolean{
		compare("N_0", "label", queryir.OpEq, ir.IRString("person")),
		compare("N_0", "label", queryir.OpEq, ir.IRString("software")),
	}}, c.Predicates)
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
	}{
		{"composite has value", []Step{V{}, Has{Key: "x", Value: []int{1}}}},
		{"composite predicate value", []Step{V{}, Has{Key: "x", Value: predicate.Eq(ir.IRArray{ir.IRInt(1)})}}},
		{"bad predicate arity", []Step{V{}, Is{Value: predicate.P{Op: predicate.OpInside, Values: []ir.IRValue{ir.IRInt(1)}}}}},
		{"empty has key", []Step{V{}, Has{Value: 1}}},
		{"inverted range", []Step{V{}, Range{Low: 3, High: 1}}},
		{"otherV on free edge", []Step{E{}, OtherV{}}},
		{"undefined cap", []Step{V{}, Cap{Keys: []string{"x"}}}},
		{"repeat without bound", []Step{V{}, Repeat{Body: T(Out{})}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(T(tt.steps...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestTimeLimitNotImplemented(t *testing.T) {
	_, err := Compile(T(V{}, TimeLimit{Millis: 10}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.Contains(t, err.Error(), "timeLimit")
}

func TestNavigationNeedsElements(t *testing.T) {
	_, err := Compile(T(Inject{Values: []any{1}}, Out{}))
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeInvalidStep, ce.Code)

	_, err = Compile(T(Out{}))
	require.Error(t, err)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeInvalidStep, ce.Code)
}

func TestEdgeEndpoints(t *testing.T) {
	c, err := Compile(T(V{}, OutE{}, InV{}))
	require.NoError(t, err)
	block, err := c.ToSelectBlock()
	require.NoError(t, err)
	assert.Equal(t, []queryir.MatchPath{{Source: "N_0", Edge: "E_1", Sink: "N_2"}}, block.Match)
	assert.Nil(t, c.Predicates, "the far end joins through the match path")

	c, err = Compile(T(V{}, OutE{}, OutV{}))
	require.NoError(t, err)
	assert.Equal(t, queryir.Compare{
		Left:  queryir.ColumnRef{Table: "N_2", Column: "id"},
		Op:    queryir.OpEq,
		Right: queryir.ColumnRef{Table: "E_1", Column: "_srcV"},
	}, c.Predicates)
	assert.Empty(t, c.Variables[1].ProjectedProperties(), "join columns are not projected")
}

func TestAndOrConnectives(t *testing.T) {
	c, err := Compile(T(V{}, Or{Traversals: []Traversal{
		T(Has{Key: "a", Value: 1}),
		T(Has{Key: "b", Value: 2}),
	}}))
	require.NoError(t, err)
	assert.Equal(t, queryir.Or{Terms: []queryir.Boolean{
		compare("N_0", "a", queryir.OpEq, ir.IRInt(1)),
		compare("N_0", "b", queryir.OpEq, ir.IRInt(2)),
	}}, c.Predicates)

	c, err = Compile(T(V{}, Not{Traversal: T(Has{Key: "a", Value: 1})}))
	require.NoError(t, err)
	not, ok := c.Predicates.(queryir.Not)
	require.True(t, ok, "got %T", c.Predicates)
	exists, ok := not.Expr.(queryir.Exists)
	require.True(t, ok, "got %T", not.Expr)
	assert.Equal(t, compare("N_0", "a", queryir.OpEq, ir.IRInt(1)), exists.Block.Where)
}

func TestSelectPopulatesLabeledSteps(t *testing.T) {
	c, err := Compile(T(V{}, As{Labels: []string{"a"}}, Out{}, As{Labels: []string{"b"}}, Select{Keys: []string{"a", "b"}}))
	require.NoError(t, err)

	assert.Equal(t, []string{"N_0", "E_1", "N_2", "R_3", "R_4"}, names(t, c.Variables))
	sel := c.Pivot().(*FunctionVariable)
	assert.Equal(t, "Select", sel.Func)
	assert.Equal(t, []string{"N_0", "N_2"}, names(t, sel.Sources))

	path := c.Variables[3].(*PathVariable)
	assert.Equal(t, []string{"N_0", "N_2"}, names(t, path.Steps))

	sel.Populate("name")
	assert.Contains(t, c.Variables[0].ProjectedProperties(), "name")
	assert.Contains(t, c.Variables[2].ProjectedProperties(), "name")
}

func TestPathByProjectsEveryStep(t *testing.T) {
	c, err := Compile(T(V{}, Out{}, Path{By: []Traversal{T(Values{Keys: []string{"name"}})}}))
	require.NoError(t, err)

	assert.Equal(t, []string{"N_0", "E_1", "N_2", "R_3"}, names(t, c.Variables))
	path := c.Pivot().(*PathVariable)
	require.Len(t, path.By, 1)
	assert.Equal(t, []string{"name"}, c.Variables[0].ProjectedProperties())
	assert.Equal(t, []string{"name"}, c.Variables[2].ProjectedProperties())
}

func TestRepeatKeepsPathProperties(t *testing.T) {
	c, err := Compile(T(V{}, Repeat{
		Body:  T(Out{}, Path{By: []Traversal{T(Values{Keys: []string{"name"}})}}),
		Times: 2,
	}))
	require.NoError(t, err)

	rep := c.Pivot().(*FunctionVariable)
	assert.Equal(t, "Repeat", rep.Func)
	assert.Equal(t, TypeTable, rep.Type(), "body ends on a path")
	body := rep.Subqueries[0]
	require.NotNil(t, body.LocalPath)
	assert.Contains(t, body.LocalPath.ProjectedProperties(), "name")
}

func TestRepeatType(t *testing.T) {
	c, err := Compile(T(V{}, Repeat{
		Body:  T(Out{}),
		Until: &Traversal{Steps: []Step{Has{Key: "name", Value: "josh"}}},
	}))
	require.NoError(t, err)

	rep := c.Pivot().(*FunctionVariable)
	assert.Equal(t, TypeVertex, rep.Type())
	assert.Len(t, rep.Subqueries, 2)
	assert.Equal(t, queryir.Literal{Value: ir.IRBool(true)}, rep.Args[1])
}

func TestLocalSplicesVariables(t *testing.T) {
	c, err := Compile(T(V{}, Local{Traversal: T(Out{})}))
	require.NoError(t, err)

	assert.Equal(t, []string{"N_0", "N_3", "E_1", "N_2"}, names(t, c.Variables))
	assert.Equal(t, []string{"N_0", "N_3"}, names(t, c.FromRefs))
	assert.Same(t, c.Variables[1], c.Pivot())
}

func TestOptionalType(t *testing.T) {
	c, err := Compile(T(V{}, Optional{Traversal: T(Out{})}))
	require.NoError(t, err)
	assert.Equal(t, TypeVertex, c.Pivot().Type())

	c, err = Compile(T(V{}, Optional{Traversal: T(Values{Keys: []string{"age"}})}))
	require.NoError(t, err)
	assert.Equal(t, TypeTable, c.Pivot().Type())
}

func TestUnionCommonType(t *testing.T) {
	c, err := Compile(T(V{}, Union{Traversals: []Traversal{T(Out{}), T(In{})}}))
	require.NoError(t, err)
	assert.Equal(t, TypeVertex, c.Pivot().Type())

	c, err = Compile(T(V{}, Union{Traversals: []Traversal{T(Out{}), T(OutE{})}}))
	require.NoError(t, err)
	assert.Equal(t, TypeTable, c.Pivot().Type())
}

func TestPropertyReusesUpdate(t *testing.T) {
	c, err := Compile(T(V{}, Property{Key: "a", Value: 1}, Property{Key: "b", Value: "x"}))
	require.NoError(t, err)

	var updates []*FunctionVariable
	for _, v := range c.Variables {
		if fv, ok := v.(*FunctionVariable); ok && fv.Func == "UpdateProperties" {
			updates = append(updates, fv)
		}
	}
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Args, 6)
	assert.Same(t, c.Variables[0], c.Pivot(), "property() does not move the pivot")
}

func TestSideEffects(t *testing.T) {
	c, err := Compile(T(V{}, Aggregate{Key: "x"}, Out{}, Cap{Keys: []string{"x"}}))
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, c.SideEffectKeys())
	capv := c.Pivot().(*FunctionVariable)
	assert.Equal(t, "Cap", capv.Func)
	assert.Equal(t, TypeTable, capv.Type())

	c, err = Compile(T(V{}, GroupCount{SideEffectKey: "g"}, Out{}))
	require.NoError(t, err)
	_, ok := c.SideEffect("g")
	assert.True(t, ok)
	assert.Equal(t, TypeVertex, c.Pivot().Type())
}

func TestAddVAndDrop(t *testing.T) {
	c, err := Compile(T(AddV{Label: "person", Properties: []PropertyArg{{Key: "name", Value: ir.IRString("ann")}}}))
	require.NoError(t, err)

	v := c.Pivot().(*VertexVariable)
	assert.Equal(t, AddedVertex, v.Kind)
	assert.NotEmpty(t, v.ID)
	ref, err := v.tableRef()
	require.NoError(t, err)
	fn := ref.(queryir.TableFunction)
	assert.Equal(t, "AddV", fn.Name)

	c, err = Compile(T(V{}, Drop{}))
	require.NoError(t, err)
	assert.Equal(t, TypeNull, c.Pivot().Type())
}
