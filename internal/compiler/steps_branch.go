package compiler

import (
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// Union merges the results of every sub-traversal.
type Union struct{ Traversals []Traversal }

// Coalesce emits the results of the first sub-traversal that produces any.
type Coalesce struct{ Traversals []Traversal }

func (Union) StepName() string    { return "union" }
func (Coalesce) StepName() string { return "coalesce" }

func (s Union) apply(c *Context) error {
	return c.branches(s.StepName(), "Union", s.Traversals)
}

func (s Coalesce) apply(c *Context) error {
	if len(s.Traversals) == 0 {
		return invalidArgument(s.StepName(), "at least one traversal is required")
	}
	return c.branches(s.StepName(), "Coalesce", s.Traversals)
}

func (c *Context) branches(step, fn string, ts []Traversal) error {
	if _, err := c.requirePivot(step); err != nil {
		return err
	}
	subs, err := c.compileChildren(ts)
	if err != nil {
		return err
	}
	v := newFunctionVariable(fn, commonType(subs), nil)
	v.Subqueries = subs
	v.Sources = pivots(subs)
	c.Add(v, true)
	return c.SetPivot(v)
}

func pivots(contexts []*Context) []Variable {
	out := make([]Variable, 0, len(contexts))
	for _, sub := range contexts {
		if p := sub.Pivot(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Optional emits the sub-traversal's results, or the element itself when
// there are none.
type Optional struct{ Traversal Traversal }

func (Optional) StepName() string { return "optional" }

func (s Optional) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	sub, err := c.compileChild(s.Traversal)
	if err != nil {
		return err
	}
	typ := TypeTable
	if sub.pivotType() == pivot.Type() {
		typ = pivot.Type()
	}
	v := newFunctionVariable("Optional", typ, pivot)
	v.Subqueries = []*Context{sub}
	v.Sources = append([]Variable{pivot}, pivots([]*Context{sub})...)
	c.Add(v, true)
	return c.SetPivot(v)
}

// ChooseOption pairs a choice value with the traversal taken for it. A nil
// Key is the default (none) option.
type ChooseOption struct {
	Key       any
	Traversal Traversal
}

// Choose branches on Condition (Then / Else, identity when nil) or on the
// value of Choice (Options).
type Choose struct {
	Condition  *Traversal
	Then, Else *Traversal

	Choice  *Traversal
	Options []ChooseOption
}

func (Choose) StepName() string { return "choose" }

func (s Choose) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}

	switch {
	case s.Condition != nil:
		cond, err := c.compileChild(*s.Condition)
		if err != nil {
			return err
		}
		var then, els Traversal
		if s.Then != nil {
			then = *s.Then
		}
		if s.Else != nil {
			els = *s.Else
		}
		branches, err := c.compileChildren([]Traversal{then, els})
		if err != nil {
			return err
		}
		v := newFunctionVariable("Choose", commonType(branches), nil)
		v.Subqueries = append([]*Context{cond}, branches...)
		v.Sources = pivots(branches)
		c.Add(v, true)
		return c.SetPivot(v)

	case s.Choice != nil:
		if len(s.Options) == 0 {
			return invalidArgument(s.StepName(), "choose() by value needs at least one option")
		}
		choice, err := c.compileChild(*s.Choice)
		if err != nil {
			return err
		}
		var args []queryir.Scalar
		var ts []Traversal
		for _, opt := range s.Options {
			if opt.Key == nil {
				args = append(args, queryir.Literal{Value: ir.IRNull{}})
			} else {
				key, err := literalArg(s.StepName(), opt.Key)
				if err != nil {
					return err
				}
				args = append(args, queryir.Literal{Value: key})
			}
			ts = append(ts, opt.Traversal)
		}
		branches, err := c.compileChildren(ts)
		if err != nil {
			return err
		}
		v := newFunctionVariable("ChooseOption", commonType(branches), nil)
		v.Args = args
		v.Subqueries = append([]*Context{choice}, branches...)
		v.Sources = pivots(branches)
		c.Add(v, true)
		return c.SetPivot(v)
	}
	return invalidArgument(s.StepName(), "choose() needs a condition or a choice traversal")
}

// Local runs the sub-traversal against each element on its own.
type Local struct{ Traversal Traversal }

func (Local) StepName() string { return "local" }

func (s Local) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	sub, err := c.compileChild(s.Traversal)
	if err != nil {
		return err
	}
	v := newFunctionVariable("Local", sub.pivotType(), pivot)
	v.Subqueries = []*Context{sub}
	v.Sources = pivots([]*Context{sub})
	c.Add(v, true)

	// The local variables follow the local variable in projection order.
	for _, lv := range sub.Variables {
		if _, inherited := lv.(*ContextVariable); inherited {
			continue
		}
		c.Add(lv, false)
	}
	return c.SetPivot(v)
}

// Repeat applies Body until Until holds or Times iterations have run,
// emitting intermediate results selected by Emit (or all of them when
// EmitAll is set). UntilFirst and EmitFirst test before the first
// iteration.
type Repeat struct {
	Body       Traversal
	Until      *Traversal
	Emit       *Traversal
	EmitAll    bool
	Times      int
	UntilFirst bool
	EmitFirst  bool
}

func (Repeat) StepName() string { return "repeat" }

func (s Repeat) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Times < 0 {
		return invalidArgument(s.StepName(), "times(%d) is negative", s.Times)
	}
	if s.Until == nil && s.Times == 0 && s.Emit == nil && !s.EmitAll {
		return invalidArgument(s.StepName(), "repeat() needs until(), times() or emit()")
	}

	body, err := c.compileChild(s.Body)
	if err != nil {
		return err
	}
	subs := []*Context{body}
	if s.Until != nil {
		until, err := body.compileChild(*s.Until)
		if err != nil {
			return err
		}
		subs = append(subs, until)
	}
	if s.Emit != nil {
		emit, err := body.compileChild(*s.Emit)
		if err != nil {
			return err
		}
		subs = append(subs, emit)
	}

	// Path labels used inside the body stay visible after unrolling.
	for _, bv := range allVariables(body) {
		if p, ok := bv.(*PathVariable); ok && !p.local {
			lp := body.localPath()
			for _, prop := range p.ProjectedProperties() {
				lp.Populate(prop)
			}
		}
	}

	typ := TypeTable
	if body.pivotType() == pivot.Type() {
		typ = pivot.Type()
	}
	v := newFunctionVariable("Repeat", typ, pivot)
	v.Args = []queryir.Scalar{
		intLit(int64(s.Times)),
		boolLit(s.Until != nil),
		boolLit(s.UntilFirst),
		boolLit(s.Emit != nil || s.EmitAll),
		boolLit(s.EmitFirst),
	}
	v.Subqueries = subs
	v.Sources = append([]Variable{pivot}, pivots([]*Context{body})...)
	c.Add(v, true)
	return c.SetPivot(v)
}
