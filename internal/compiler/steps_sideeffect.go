package compiler

import (
	"github.com/roach88/gview/internal/queryir"
)

// As labels the current step for select(), where() and path().
type As struct{ Labels []string }

func (As) StepName() string { return "as" }

func (s As) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if len(s.Labels) == 0 {
		return invalidArgument(s.StepName(), "at least one label is required")
	}
	pivot.AddLabels(s.Labels...)
	return nil
}

// Identity passes elements through.
type Identity struct{}

func (Identity) StepName() string { return "identity" }

func (Identity) apply(*Context) error { return nil }

// Aggregate gathers the whole stream into the side effect Key before any
// element moves on.
type Aggregate struct {
	Key string
	By  *Traversal
}

// Store adds each element to the side effect Key as it passes.
type Store struct {
	Key string
	By  *Traversal
}

func (Aggregate) StepName() string { return "aggregate" }
func (Store) StepName() string     { return "store" }

func (s Aggregate) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Key == "" {
		return invalidArgument(s.StepName(), "side-effect key is required")
	}
	by, err := c.optionalChild(s.By)
	if err != nil {
		return err
	}

	dup := c.duplicateAndReset()
	v := newFunctionVariable("Aggregate", pivot.Type(), nil)
	v.Subqueries = append([]*Context{dup}, by...)
	v.SideEffectKey = s.Key
	v.Sources = []Variable{pivot}
	c.Add(v, true)
	c.sideEffects.register(s.Key, v)
	return c.SetPivot(v)
}

func (s Store) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Key == "" {
		return invalidArgument(s.StepName(), "side-effect key is required")
	}
	by, err := c.optionalChild(s.By)
	if err != nil {
		return err
	}
	v := newFunctionVariable("Store", TypeTable, pivot)
	v.Subqueries = by
	v.SideEffectKey = s.Key
	c.Add(v, true)
	c.sideEffects.register(s.Key, v)
	return nil
}

func (c *Context) optionalChild(t *Traversal) ([]*Context, error) {
	if t == nil {
		return nil, nil
	}
	sub, err := c.compileChild(*t)
	if err != nil {
		return nil, err
	}
	return []*Context{sub}, nil
}

// Cap emits the side effects named by Keys.
type Cap struct{ Keys []string }

func (Cap) StepName() string { return "cap" }

func (s Cap) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}
	if len(s.Keys) == 0 {
		return invalidArgument(s.StepName(), "at least one side-effect key is required")
	}
	for _, k := range s.Keys {
		if _, ok := c.SideEffect(k); !ok {
			return invalidArgument(s.StepName(), "side effect %q is not defined", k)
		}
	}

	dup := c.duplicateAndReset()
	v := newFunctionVariable("Cap", TypeTable, nil)
	v.Args = strLits(s.Keys)
	v.Subqueries = []*Context{dup}
	c.Add(v, true)
	return c.SetPivot(v)
}

// SideEffect runs the sub-traversal for its effects only.
type SideEffect struct{ Traversal Traversal }

func (SideEffect) StepName() string { return "sideEffect" }

func (s SideEffect) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	sub, err := c.compileChild(s.Traversal)
	if err != nil {
		return err
	}
	v := newFunctionVariable("SideEffect", TypeTable, pivot)
	v.Subqueries = []*Context{sub}
	c.Add(v, true)
	return nil
}

// Subgraph collects traversed edges (with their endpoints) into the side
// effect Key.
type Subgraph struct{ Key string }

func (Subgraph) StepName() string { return "subgraph" }

func (s Subgraph) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Key == "" {
		return invalidArgument(s.StepName(), "side-effect key is required")
	}
	switch pivot.Type() {
	case TypeEdge, TypeTable, TypeUndefined:
	default:
		return invalidStep(s.StepName(), "expects edges, the current step produces %s", pivot.Type())
	}
	v := newFunctionVariable("Subgraph", TypeTable, pivot)
	v.SideEffectKey = s.Key
	c.Add(v, true)
	c.sideEffects.register(s.Key, v)
	return nil
}

// Barrier collects up to Max elements (all when zero) before letting them
// continue.
type Barrier struct{ Max int }

func (Barrier) StepName() string { return "barrier" }

func (s Barrier) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Max < 0 {
		return invalidArgument(s.StepName(), "barrier size %d is negative", s.Max)
	}
	v := newFunctionVariable("Barrier", pivot.Type(), pivot)
	v.Args = []queryir.Scalar{intLit(int64(s.Max))}
	c.Add(v, true)
	return nil
}

// Property sets a property on the current elements. Cardinality is
// "single" (default) or "list"; MetaProperties apply to vertex properties.
type Property struct {
	Key            string
	Value          any
	Cardinality    string
	MetaProperties []PropertyArg
}

func (Property) StepName() string { return "property" }

func (s Property) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Key == "" {
		return invalidArgument(s.StepName(), "property key is required")
	}
	switch pivot.Type() {
	case TypeVertex, TypeEdge, TypeVertexProperty, TypeTable, TypeUndefined:
	default:
		return invalidStep(s.StepName(), "cannot set properties on %s", pivot.Type())
	}
	val, err := literalArg(s.StepName(), s.Value)
	if err != nil {
		return err
	}
	card := s.Cardinality
	switch card {
	case "":
		card = "single"
	case "single", "list":
	default:
		return invalidArgument(s.StepName(), "unknown cardinality %q", s.Cardinality)
	}

	// One update variable per target collects every property() in a row.
	var update *FunctionVariable
	for _, v := range c.Variables {
		if fv, ok := v.(*FunctionVariable); ok && fv.Func == "UpdateProperties" && fv.Input == pivot {
			update = fv
			break
		}
	}
	if update == nil {
		update = newFunctionVariable("UpdateProperties", TypeNull, pivot)
		c.Add(update, true)
	}
	update.Args = append(update.Args, strLit(card), strLit(s.Key), queryir.Literal{Value: val})
	update.Args = append(update.Args, propertyArgs(s.MetaProperties)...)
	return nil
}

// AddE creates an edge from From to To. A missing endpoint traversal means
// the current element.
type AddE struct {
	Label      string
	From, To   *Traversal
	Properties []PropertyArg
}

func (AddE) StepName() string { return "addE" }

func (s AddE) apply(c *Context) error {
	if s.Label == "" {
		return invalidArgument(s.StepName(), "edge label is required")
	}
	if c.pivot == nil && (s.From == nil || s.To == nil) {
		return invalidArgument(s.StepName(), "addE() at the start of a traversal needs both from() and to()")
	}
	var from, to Traversal
	if s.From != nil {
		from = *s.From
	}
	if s.To != nil {
		to = *s.To
	}
	ends, err := c.compileChildren([]Traversal{from, to})
	if err != nil {
		return err
	}

	v := newFunctionVariable("AddE", TypeEdge, nil)
	v.Args = append([]queryir.Scalar{strLit(s.Label)}, propertyArgs(s.Properties)...)
	v.Subqueries = ends
	c.Add(v, true)
	return c.SetPivot(v)
}

// Drop removes the current elements. Nothing is emitted.
type Drop struct{}

func (Drop) StepName() string { return "drop" }

func (s Drop) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	v := newFunctionVariable("Drop", TypeNull, pivot)
	c.Add(v, true)
	return c.SetPivot(v)
}
