package compiler

import (
	"github.com/roach88/gview/internal/queryir"
)

// Count counts the stream (global) or each collection (local).
type Count struct{ Scope Scope }

// Sum sums numeric elements.
type Sum struct{ Scope Scope }

// Min emits the smallest element.
type Min struct{ Scope Scope }

// Max emits the largest element.
type Max struct{ Scope Scope }

// Mean emits the average of numeric elements.
type Mean struct{ Scope Scope }

func (Count) StepName() string { return "count" }
func (Sum) StepName() string   { return "sum" }
func (Min) StepName() string   { return "min" }
func (Max) StepName() string   { return "max" }
func (Mean) StepName() string  { return "mean" }

func (s Count) apply(c *Context) error { return c.aggregate(s.StepName(), "Count", s.Scope) }
func (s Sum) apply(c *Context) error   { return c.aggregate(s.StepName(), "Sum", s.Scope) }
func (s Min) apply(c *Context) error   { return c.aggregate(s.StepName(), "Min", s.Scope) }
func (s Max) apply(c *Context) error   { return c.aggregate(s.StepName(), "Max", s.Scope) }
func (s Mean) apply(c *Context) error  { return c.aggregate(s.StepName(), "Mean", s.Scope) }

// aggregate collapses the stream into one scalar. A global aggregate
// consumes a duplicate of the context and replaces its contents; a local
// one reads the pivot's collection.
func (c *Context) aggregate(step, fn string, scope Scope) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	if scope == ScopeLocal {
		v := newFunctionVariable(fn+"Local", TypeScalar, pivot)
		c.Add(v, true)
		return c.SetPivot(v)
	}

	dup := c.duplicateAndReset()
	v := newFunctionVariable(fn, TypeScalar, nil)
	v.Subqueries = []*Context{dup}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Fold gathers the stream into one list.
type Fold struct{}

func (Fold) StepName() string { return "fold" }

func (s Fold) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	dup := c.duplicateAndReset()
	v := newFunctionVariable("Fold", TypeTable, nil)
	v.Subqueries = []*Context{dup}
	v.Sources = []Variable{pivot}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Group groups elements by KeyBy and reduces each group through ValueBy
// (both default to the element itself). With a SideEffectKey the map is
// published as a side effect and the stream passes through unchanged.
type Group struct {
	SideEffectKey string
	KeyBy         *Traversal
	ValueBy       *Traversal
}

// GroupCount counts elements per By key.
type GroupCount struct {
	SideEffectKey string
	By            *Traversal
}

func (Group) StepName() string      { return "group" }
func (GroupCount) StepName() string { return "groupCount" }

func (s Group) apply(c *Context) error {
	var value Traversal
	if s.ValueBy != nil {
		value = *s.ValueBy
	}
	return c.group(s.StepName(), "Group", s.SideEffectKey, s.KeyBy, value)
}

func (s GroupCount) apply(c *Context) error {
	return c.group(s.StepName(), "GroupCount", s.SideEffectKey, s.By, T(Count{}))
}

func (c *Context) group(step, fn, sideEffectKey string, keyBy *Traversal, valueBy Traversal) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	var key Traversal
	if keyBy != nil {
		key = *keyBy
	}
	keyCtx, err := c.compileChild(key)
	if err != nil {
		return err
	}
	valueCtx, err := c.compileChild(valueBy)
	if err != nil {
		return err
	}

	if sideEffectKey != "" {
		v := newFunctionVariable(fn, TypeTable, pivot)
		v.Subqueries = []*Context{keyCtx, valueCtx}
		v.SideEffectKey = sideEffectKey
		c.Add(v, true)
		c.sideEffects.register(sideEffectKey, v)
		return nil
	}

	dup := c.duplicateAndReset()
	v := newFunctionVariable(fn, TypeTable, nil)
	v.Subqueries = []*Context{dup, keyCtx, valueCtx}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Tree builds the tree of traversed paths, projecting path elements through
// By round-robin. With a SideEffectKey the tree is published as a side
// effect and the stream passes through unchanged.
type Tree struct {
	SideEffectKey string
	By            []Traversal
}

func (Tree) StepName() string { return "tree" }

func (s Tree) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}
	path, err := c.generatePath(s.By, "", "")
	if err != nil {
		return err
	}

	if s.SideEffectKey != "" {
		v := newFunctionVariable("Tree", TypeTable, path)
		v.SideEffectKey = s.SideEffectKey
		c.Add(v, true)
		c.sideEffects.register(s.SideEffectKey, v)
		return nil
	}

	// The duplicate projects the path, which the tree folds.
	if err := c.SetPivot(path); err != nil {
		return err
	}
	dup := c.duplicateAndReset()
	v := newFunctionVariable("Tree", TypeTable, nil)
	v.Subqueries = []*Context{dup}
	c.Add(v, true)
	return c.SetPivot(v)
}

// OrderBy is one sort key of order(): a traversal (identity when empty) and
// a direction, "asc" (default), "desc" or "shuffle".
type OrderBy struct {
	Traversal Traversal
	Order     string
}

// Order sorts the stream (global) or each collection (local).
type Order struct {
	By    []OrderBy
	Scope Scope
}

func (Order) StepName() string { return "order" }

func (s Order) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	by := s.By
	if len(by) == 0 {
		by = []OrderBy{{}}
	}

	var args []queryir.Scalar
	var subs []*Context
	for _, b := range by {
		dir := b.Order
		switch dir {
		case "":
			dir = "asc"
		case "asc", "desc", "shuffle":
		default:
			return invalidArgument(s.StepName(), "unknown order %q", b.Order)
		}
		sub, err := c.compileChild(b.Traversal)
		if err != nil {
			return err
		}
		args = append(args, strLit(dir))
		subs = append(subs, sub)
	}

	if s.Scope == ScopeLocal {
		v := newFunctionVariable("OrderLocal", TypeTable, pivot)
		v.Args = args
		v.Subqueries = subs
		c.Add(v, true)
		return c.SetPivot(v)
	}

	v := newFunctionVariable("Order", pivot.Type(), pivot)
	v.Args = args
	v.Subqueries = subs
	c.Add(v, true)
	return nil
}
