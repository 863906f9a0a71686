package compiler

import (
	"slices"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/predicate"
	"github.com/roach88/gview/internal/queryir"
)

// generatePath adds a global path variable over every step recorded so far.
// Each by() modulator is compiled in its own scope seeded with one
// decomposed path element; without modulators elements project themselves.
func (c *Context) generatePath(by []Traversal, from, to string) (*PathVariable, error) {
	path := &PathVariable{Steps: c.PathSteps(), From: from, To: to}
	c.Add(path, true)

	for _, t := range by {
		sc, err := c.decomposeScope(path, t)
		if err != nil {
			return nil, err
		}
		path.By = append(path.By, sc)
	}
	return path, nil
}

// decomposeScope compiles t against one element of path.
func (c *Context) decomposeScope(path *PathVariable, t Traversal) (*Context, error) {
	sc := c.scope()
	dec := &DecomposeVariable{Path: path}
	sc.Add(dec, true)
	if err := sc.SetPivot(dec); err != nil {
		return nil, err
	}
	if err := sc.Apply(t.Steps...); err != nil {
		return nil, err
	}
	return sc, nil
}

// selectVariable adds a variable holding the path elements (or side effects)
// labeled with keys.
func (c *Context) selectVariable(pop Pop, keys []string, by []Traversal) (*FunctionVariable, error) {
	steps := c.PathSteps()
	path, err := c.generatePath(nil, "", "")
	if err != nil {
		return nil, err
	}
	pathCol, err := property(path, ir.PathColumn)
	if err != nil {
		return nil, err
	}

	sel := newFunctionVariable("Select", TypeTable, nil)
	sel.Args = append([]queryir.Scalar{pathCol, strLit(string(pop))}, strLits(keys)...)
	for _, key := range keys {
		for _, step := range steps {
			if slices.Contains(step.Labels(), key) {
				sel.Sources = append(sel.Sources, step)
			}
		}
		if v, ok := c.SideEffect(key); ok {
			proj, err := defaultProjection(v)
			if err != nil {
				return nil, err
			}
			sel.Args = append(sel.Args, proj)
			sel.Sources = append(sel.Sources, v)
		}
	}
	for _, t := range by {
		sc, err := c.decomposeScope(path, t)
		if err != nil {
			return nil, err
		}
		sel.Subqueries = append(sel.Subqueries, sc)
	}

	c.Add(sel, true)
	return sel, nil
}

// wherePredicate compiles where(P) where the predicate's values are step
// labels: each label is selected from the path and compared with first.
func (c *Context) wherePredicate(step string, first Variable, p predicate.P, ring *traversalRing) (queryir.Boolean, error) {
	if err := p.Validate(); err != nil {
		return nil, invalidArgument(step, "%v", err)
	}

	if p.IsComposite() {
		terms := make([]queryir.Boolean, 0, len(p.Terms))
		for _, t := range p.Terms {
			b, err := c.wherePredicate(step, first, t, ring)
			if err != nil {
				return nil, err
			}
			terms = append(terms, b)
		}
		if p.Op == predicate.OpAnd {
			return queryir.And{Terms: terms}, nil
		}
		return queryir.Or{Terms: terms}, nil
	}

	lhs, err := defaultProjection(first)
	if err != nil {
		return nil, err
	}

	compareTo := func(label ir.IRValue, op queryir.CompareOp) (queryir.Boolean, error) {
		s, ok := label.(ir.IRString)
		if !ok {
			return nil, invalidArgument(step, "where() predicate values must be step labels, got %s", ir.Text(label))
		}
		var by []Traversal
		if len(ring.items) > 0 {
			by = []Traversal{ring.Next()}
		}
		sel, err := c.selectVariable(PopLast, []string{string(s)}, by)
		if err != nil {
			return nil, err
		}
		rhs, err := defaultProjection(sel)
		if err != nil {
			return nil, err
		}
		return queryir.Compare{Left: lhs, Op: op, Right: rhs}, nil
	}

	switch p.Op {
	case predicate.OpWithin, predicate.OpWithout:
		var out queryir.Boolean
		for _, label := range p.Values {
			if p.Op == predicate.OpWithin {
				b, err := compareTo(label, queryir.OpEq)
				if err != nil {
					return nil, err
				}
				out = queryir.ConjoinOr(out, b)
			} else {
				b, err := compareTo(label, queryir.OpNeq)
				if err != nil {
					return nil, err
				}
				out = queryir.ConjoinAnd(out, b)
			}
		}
		if out == nil {
			if p.Op == predicate.OpWithin {
				return queryir.Not{Expr: queryir.True{}}, nil
			}
			return queryir.True{}, nil
		}
		return out, nil
	case predicate.OpInside, predicate.OpOutside, predicate.OpBetween:
		return nil, invalidArgument(step, "predicate %s cannot compare step labels", p.Op)
	default:
		return compareTo(p.Values[0], compareOps[p.Op])
	}
}

// localPath returns the path over c's own steps, creating it on first use.
func (c *Context) localPath() *PathVariable {
	if c.LocalPath == nil {
		c.LocalPath = &PathVariable{Steps: slices.Clone(c.steps), local: true}
		c.Add(c.LocalPath, true)
	}
	return c.LocalPath
}

// allVariables returns c's variables followed by those of every nested
// sub-context, depth first.
func allVariables(c *Context) []Variable {
	var out []Variable
	seen := make(map[*Context]bool)
	var walk func(*Context)
	walk = func(ctx *Context) {
		if ctx == nil || seen[ctx] {
			return
		}
		seen[ctx] = true
		for _, v := range ctx.Variables {
			out = append(out, v)
			switch fv := v.(type) {
			case *FunctionVariable:
				for _, sub := range fv.Subqueries {
					walk(sub)
				}
			case *PathVariable:
				for _, sub := range fv.By {
					walk(sub)
				}
			}
		}
	}
	walk(c)
	return out
}
