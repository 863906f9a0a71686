package compiler

import (
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// Values emits the values of the given properties, or of all properties
// when Keys is empty.
type Values struct{ Keys []string }

// Properties emits the given properties (or all) as property elements.
type Properties struct{ Keys []string }

// ValueMap emits a map of the given properties (or all). IncludeTokens adds
// id and label.
type ValueMap struct {
	Keys          []string
	IncludeTokens bool
}

// PropertyMap emits a map of property elements.
type PropertyMap struct{ Keys []string }

func (Values) StepName() string      { return "values" }
func (Properties) StepName() string  { return "properties" }
func (ValueMap) StepName() string    { return "valueMap" }
func (PropertyMap) StepName() string { return "propertyMap" }

func (s Values) apply(c *Context) error {
	return c.projectProperties(s.StepName(), "Values", TypeScalar, s.Keys, false)
}

func (s Properties) apply(c *Context) error {
	typ := TypeProperty
	if c.pivotType() == TypeVertex {
		typ = TypeVertexProperty
	}
	return c.projectProperties(s.StepName(), "Properties", typ, s.Keys, false)
}

func (s ValueMap) apply(c *Context) error {
	return c.projectProperties(s.StepName(), "ValueMap", TypeTable, s.Keys, s.IncludeTokens)
}

func (s PropertyMap) apply(c *Context) error {
	return c.projectProperties(s.StepName(), "PropertyMap", TypeTable, s.Keys, false)
}

// projectProperties populates keys on the pivot (the whole element when
// none are named) and adds the function reading them.
func (c *Context) projectProperties(step, fn string, typ VariableType, keys []string, tokens bool) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		pivot.Populate(ir.NodeMarker)
	}
	for _, k := range keys {
		pivot.Populate(k)
	}
	if tokens {
		pivot.Populate(ir.KeyID)
		pivot.Populate(ir.KeyLabel)
	}

	v := newFunctionVariable(fn, typ, pivot)
	v.Args = strLits(keys)
	if tokens {
		v.Args = append(v.Args, boolLit(true))
	}
	c.Add(v, true)
	return c.SetPivot(v)
}

// ID emits element ids.
type ID struct{}

// Label emits element labels.
type Label struct{}

func (ID) StepName() string    { return "id" }
func (Label) StepName() string { return "label" }

func (s ID) apply(c *Context) error    { return c.projectToken(s.StepName(), "Id", ir.KeyID) }
func (s Label) apply(c *Context) error { return c.projectToken(s.StepName(), "Label", ir.KeyLabel) }

func (c *Context) projectToken(step, fn, key string) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	col, err := property(pivot, key)
	if err != nil {
		return err
	}
	v := newFunctionVariable(fn, TypeScalar, nil)
	v.Args = []queryir.Scalar{col}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Key emits the keys of property elements.
type Key struct{}

// Value emits the values of property elements.
type Value struct{}

func (Key) StepName() string   { return "key" }
func (Value) StepName() string { return "value" }

func (s Key) apply(c *Context) error   { return c.propertyPart(s.StepName(), "Key") }
func (s Value) apply(c *Context) error { return c.propertyPart(s.StepName(), "Value") }

func (c *Context) propertyPart(step, fn string) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	switch pivot.Type() {
	case TypeVertexProperty, TypeProperty, TypeTable, TypeUndefined:
	default:
		return invalidStep(step, "expects properties, the current step produces %s", pivot.Type())
	}
	v := newFunctionVariable(fn, TypeScalar, pivot)
	c.Add(v, true)
	return c.SetPivot(v)
}

// Constant replaces every element with Value.
type Constant struct {
	Value any
}

func (Constant) StepName() string { return "constant" }

func (s Constant) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}
	val, err := ir.FromGo(s.Value)
	if err != nil {
		return invalidArgument(s.StepName(), "%v", err)
	}
	v := newFunctionVariable("Constant", TypeScalar, nil)
	v.Args = []queryir.Scalar{queryir.Literal{Value: val}}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Project builds a map from Keys to the results of the matching By
// traversals. Keys without a By project the element itself.
type Project struct {
	Keys []string
	By   []Traversal
}

func (Project) StepName() string { return "project" }

func (s Project) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if len(s.Keys) == 0 {
		return invalidArgument(s.StepName(), "at least one key is required")
	}
	if len(s.By) > len(s.Keys) {
		return invalidArgument(s.StepName(), "%d by() modulators for %d keys", len(s.By), len(s.Keys))
	}

	v := newFunctionVariable("Project", TypeTable, pivot)
	v.Args = strLits(s.Keys)
	for i := range s.Keys {
		var t Traversal
		if i < len(s.By) {
			t = s.By[i]
		}
		sub, err := c.compileChild(t)
		if err != nil {
			return err
		}
		v.Subqueries = append(v.Subqueries, sub)
	}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Select emits the path elements (or side effects) labeled with Keys.
type Select struct {
	Pop  Pop
	Keys []string
	By   []Traversal
}

func (Select) StepName() string { return "select" }

func (s Select) apply(c *Context) error {
	if len(s.Keys) == 0 {
		return invalidArgument(s.StepName(), "at least one key is required")
	}
	pop := s.Pop
	if pop == "" {
		pop = PopMixed
	}
	sel, err := c.selectVariable(pop, s.Keys, s.By)
	if err != nil {
		return err
	}
	return c.SetPivot(sel)
}

// SelectColumn emits the keys or values of map elements.
type SelectColumn struct {
	Column Column
}

func (SelectColumn) StepName() string { return "select" }

func (s SelectColumn) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Column != ColumnKeys && s.Column != ColumnValues {
		return invalidArgument(s.StepName(), "unknown column %q", s.Column)
	}
	v := newFunctionVariable("SelectColumn", TypeTable, pivot)
	v.Args = []queryir.Scalar{strLit(string(s.Column))}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Path emits the path of each traverser, with elements projected through
// the By modulators round-robin.
type Path struct {
	By       []Traversal
	From, To string
}

func (Path) StepName() string { return "path" }

func (s Path) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}
	path, err := c.generatePath(s.By, s.From, s.To)
	if err != nil {
		return err
	}
	return c.SetPivot(path)
}

// Map replaces each element with the first result of the sub-traversal.
type Map struct{ Traversal Traversal }

// FlatMap replaces each element with all results of the sub-traversal.
type FlatMap struct{ Traversal Traversal }

func (Map) StepName() string     { return "map" }
func (FlatMap) StepName() string { return "flatMap" }

func (s Map) apply(c *Context) error     { return c.mapStep(s.StepName(), "Map", s.Traversal) }
func (s FlatMap) apply(c *Context) error { return c.mapStep(s.StepName(), "FlatMap", s.Traversal) }

func (c *Context) mapStep(step, fn string, t Traversal) error {
	if _, err := c.requirePivot(step); err != nil {
		return err
	}
	sub, err := c.compileChild(t)
	if err != nil {
		return err
	}
	v := newFunctionVariable(fn, sub.pivotType(), nil)
	v.Subqueries = []*Context{sub}
	v.Sources = []Variable{sub.Pivot()}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Unfold flattens collections into their elements.
type Unfold struct{}

func (Unfold) StepName() string { return "unfold" }

func (s Unfold) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	v := newFunctionVariable("Unfold", TypeTable, pivot)
	c.Add(v, true)
	return c.SetPivot(v)
}
