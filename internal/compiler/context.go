package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// Context accumulates the variables, join sources and predicates of one
// traversal segment: the main traversal or a nested sub-traversal.
//
// Variables keeps creation order, which is the projection order of the
// compiled query. The pivot is the variable subsequent steps operate on.
type Context struct {
	Variables  []Variable
	FromRefs   []Variable
	Predicates queryir.Boolean

	// LocalPath is the path over this context's own steps, created on demand
	// by repeat().
	LocalPath *PathVariable

	pivot Variable

	// steps records every variable that became the pivot, in order.
	steps []Variable

	sideEffects *sideEffects
	names       *nameAllocator
	parent      *Context

	// stepStart is len(Variables) when the current step began; a step may
	// only move the pivot to a variable at or after it.
	stepStart int
}

type sideEffects struct {
	keys []string
	vars map[string]Variable
}

func (s *sideEffects) register(key string, v Variable) {
	if _, ok := s.vars[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.vars[key] = v
}

// NewContext creates an empty root context.
func NewContext() *Context {
	return &Context{
		sideEffects: &sideEffects{vars: make(map[string]Variable)},
		names:       &nameAllocator{},
	}
}

// Pivot returns the current position, or nil before the first producing step.
func (c *Context) Pivot() Variable { return c.pivot }

// Parent returns the enclosing context of a sub-traversal.
func (c *Context) Parent() *Context { return c.parent }

// Add appends v to the variable sequence and, when joinSource is true, to the
// join sources. It binds v's name.
func (c *Context) Add(v Variable, joinSource bool) {
	v.bind(c.names)
	c.Variables = append(c.Variables, v)
	if joinSource {
		c.FromRefs = append(c.FromRefs, v)
	}
}

// SetPivot moves the pivot to v, which must have been added by the step
// being applied.
func (c *Context) SetPivot(v Variable) error {
	if v == nil || !slices.Contains(c.Variables[c.stepStart:], v) {
		return &CompileError{
			Code:    ErrCodePivot,
			Message: "pivot must be a variable added by the current step",
		}
	}
	c.pivot = v
	c.steps = append(c.steps, v)
	return nil
}

// AddPredicate conjoins b with the context's predicates.
func (c *Context) AddPredicate(b queryir.Boolean) {
	c.Predicates = queryir.ConjoinAnd(c.Predicates, b)
}

// Duplicate copies the context for use as an aggregation sub-scope. The copy
// shares variables (they are pointers) but not the sequences holding them.
func (c *Context) Duplicate() *Context {
	d := *c
	d.Variables = slices.Clone(c.Variables)
	d.FromRefs = slices.Clone(c.FromRefs)
	d.steps = slices.Clone(c.steps)
	return &d
}

// Reset clears the context so a single aggregate variable can replace its
// contents. Side effects and the name allocator survive.
func (c *Context) Reset() {
	c.Variables = nil
	c.FromRefs = nil
	c.Predicates = nil
	c.LocalPath = nil
	c.pivot = nil
	c.steps = nil
	c.stepStart = 0
}

// Child creates a sub-traversal context whose pivot stands for c's pivot.
func (c *Context) Child() *Context {
	child := &Context{
		sideEffects: c.sideEffects,
		names:       c.names,
		parent:      c,
	}
	if c.pivot != nil {
		cv := &ContextVariable{Outer: c.pivot}
		child.Add(cv, false)
		child.pivot = cv
	}
	return child
}

// scope creates a detached context sharing c's allocator and side effects,
// used to compile by() modulators over a decomposed path.
func (c *Context) scope() *Context {
	return &Context{sideEffects: c.sideEffects, names: c.names}
}

// PathSteps returns the pivots recorded by the enclosing contexts and by c,
// outermost first.
func (c *Context) PathSteps() []Variable {
	var steps []Variable
	if c.parent != nil {
		steps = c.parent.PathSteps()
	}
	return append(steps, c.steps...)
}

// SideEffect returns the variable published under key.
func (c *Context) SideEffect(key string) (Variable, bool) {
	v, ok := c.sideEffects.vars[key]
	return v, ok
}

// SideEffectKeys returns the published side-effect keys in registration order.
func (c *Context) SideEffectKeys() []string {
	return slices.Clone(c.sideEffects.keys)
}

// Apply runs steps in order against the context.
func (c *Context) Apply(steps ...Step) error {
	for _, s := range steps {
		c.stepStart = len(c.Variables)
		if err := s.apply(c); err != nil {
			if IsCompileError(err) {
				return err
			}
			return fmt.Errorf("%s(): %w", s.StepName(), err)
		}
	}
	return nil
}

// ToSelectBlock converts the context into a relational select block.
func (c *Context) ToSelectBlock() (*queryir.SelectBlock, error) {
	block := &queryir.SelectBlock{Where: c.Predicates}

	for _, v := range c.FromRefs {
		ref, err := v.tableRef()
		if err != nil {
			return nil, err
		}
		if ref != nil {
			block.From = append(block.From, ref)
		}
		if e, ok := v.(*EdgeVariable); ok {
			path, err := e.matchPath()
			if err != nil {
				return nil, err
			}
			if path != nil {
				block.Match = append(block.Match, *path)
			}
		}
	}

	if c.pivot == nil {
		return block, nil
	}
	sel, err := selectElements(c.pivot)
	if err != nil {
		return nil, err
	}
	block.Select = sel
	return block, nil
}

func selectElements(pivot Variable) ([]queryir.SelectElement, error) {
	name, err := pivot.Name()
	if err != nil {
		return nil, err
	}
	switch pivot.Type() {
	case TypeVertex, TypeEdge:
		out := []queryir.SelectElement{{Expr: queryir.Star{Table: name}, Alias: name}}
		for _, p := range pivot.ProjectedProperties() {
			if p == ir.NodeMarker {
				continue
			}
			out = append(out, queryir.SelectElement{
				Expr:  queryir.ColumnRef{Table: name, Column: p},
				Alias: name + "_" + p,
			})
		}
		return out, nil
	default:
		return []queryir.SelectElement{{
			Expr:  queryir.ColumnRef{Table: name, Column: ir.DefaultColumn},
			Alias: name,
		}}, nil
	}
}

// ToBoolean converts a sub-traversal into a filter on the enclosing context.
// A sub-traversal that only filters the inherited pivot contributes its
// predicates directly; anything else becomes EXISTS over its select block.
func (c *Context) ToBoolean() (queryir.Boolean, error) {
	if c.onlyInherited() {
		if c.Predicates == nil {
			return queryir.True{}, nil
		}
		return c.Predicates, nil
	}
	block, err := c.ToSelectBlock()
	if err != nil {
		return nil, err
	}
	return queryir.Exists{Block: block}, nil
}

func (c *Context) onlyInherited() bool {
	for _, v := range c.Variables {
		if _, ok := v.(*ContextVariable); !ok {
			return false
		}
	}
	return true
}

// requirePivot returns the pivot or fails the step when there is none.
func (c *Context) requirePivot(step string) (Variable, error) {
	if c.pivot == nil {
		return nil, invalidStep(step, "step needs an input; start the traversal with V(), E(), inject() or addV()")
	}
	return c.pivot, nil
}

// duplicateAndReset is the aggregation skeleton: the current contents move
// into a sub-scope that becomes the aggregate's input, and the context is
// left empty for the aggregate variable.
func (c *Context) duplicateAndReset() *Context {
	dup := c.Duplicate()
	c.Reset()
	return dup
}

// compileChild compiles t as a sub-traversal of c.
func (c *Context) compileChild(t Traversal) (*Context, error) {
	child := c.Child()
	if err := child.Apply(t.Steps...); err != nil {
		return nil, err
	}
	return child, nil
}

func (c *Context) compileChildren(ts []Traversal) ([]*Context, error) {
	out := make([]*Context, 0, len(ts))
	for _, t := range ts {
		sub, err := c.compileChild(t)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// pivotType is the type of c's pivot, Undefined when there is none.
func (c *Context) pivotType() VariableType {
	if c.pivot == nil {
		return TypeUndefined
	}
	return c.pivot.Type()
}

// commonType is the pivot type shared by every context, or Table when they
// disagree.
func commonType(contexts []*Context) VariableType {
	if len(contexts) == 0 {
		return TypeTable
	}
	t := contexts[0].pivotType()
	for _, sub := range contexts[1:] {
		if sub.pivotType() != t {
			return TypeTable
		}
	}
	return t
}
