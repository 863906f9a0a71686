package compiler

import (
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/predicate"
	"github.com/roach88/gview/internal/queryir"
)

// Has filters on a property. With a nil Value it checks that the property
// exists; otherwise Value is a literal (equality) or a predicate.P. A
// non-empty Label also restricts the element label.
type Has struct {
	Label string
	Key   string
	Value any
}

func (Has) StepName() string { return "has" }

func (s Has) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Key == "" {
		return invalidArgument(s.StepName(), "property key is required")
	}
	if s.Label != "" {
		if err := c.labelPredicate(pivot, []string{s.Label}); err != nil {
			return err
		}
	}

	if s.Value == nil {
		block, err := c.propertiesBlock(s.StepName(), s.Key)
		if err != nil {
			return err
		}
		c.AddPredicate(queryir.Exists{Block: block})
		return nil
	}

	lhs, err := property(pivot, s.Key)
	if err != nil {
		return err
	}
	cond, err := compareArg(s.StepName(), lhs, s.Value)
	if err != nil {
		return err
	}
	c.AddPredicate(cond)
	return nil
}

// HasNot keeps elements without the property.
type HasNot struct {
	Key string
}

func (HasNot) StepName() string { return "hasNot" }

func (s HasNot) apply(c *Context) error {
	if _, err := c.requirePivot(s.StepName()); err != nil {
		return err
	}
	block, err := c.propertiesBlock(s.StepName(), s.Key)
	if err != nil {
		return err
	}
	c.AddPredicate(queryir.Not{Expr: queryir.Exists{Block: block}})
	return nil
}

// propertiesBlock compiles __.properties(key) against the pivot. Existence
// checks go through a sub-query because the property may be absent or
// multi-valued.
func (c *Context) propertiesBlock(step, key string) (*queryir.SelectBlock, error) {
	if key == "" {
		return nil, invalidArgument(step, "property key is required")
	}
	sub, err := c.compileChild(T(Properties{Keys: []string{key}}))
	if err != nil {
		return nil, err
	}
	return sub.ToSelectBlock()
}

// HasID keeps elements whose id is any of Values.
type HasID struct{ Values []any }

// HasLabel keeps elements whose label is any of Values.
type HasLabel struct{ Values []any }

func (HasID) StepName() string    { return "hasId" }
func (HasLabel) StepName() string { return "hasLabel" }

func (s HasID) apply(c *Context) error {
	return c.hasAny(s.StepName(), ir.KeyID, s.Values)
}

func (s HasLabel) apply(c *Context) error {
	return c.hasAny(s.StepName(), ir.KeyLabel, s.Values)
}

func (c *Context) hasAny(step, key string, values []any) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return invalidArgument(step, "at least one value is required")
	}
	lhs, err := property(pivot, key)
	if err != nil {
		return err
	}
	cond, err := anyOf(step, lhs, values)
	if err != nil {
		return err
	}
	c.AddPredicate(cond)
	return nil
}

// HasKey keeps properties whose key is any of Values.
type HasKey struct{ Values []any }

// HasValue keeps properties whose value is any of Values.
type HasValue struct{ Values []any }

func (HasKey) StepName() string   { return "hasKey" }
func (HasValue) StepName() string { return "hasValue" }

func (s HasKey) apply(c *Context) error {
	return c.hasPropertyPart(s.StepName(), Key{}, s.Values)
}

func (s HasValue) apply(c *Context) error {
	return c.hasPropertyPart(s.StepName(), Value{}, s.Values)
}

// hasPropertyPart compiles EXISTS(__.key() or __.value() matching values).
func (c *Context) hasPropertyPart(step string, part Step, values []any) error {
	if _, err := c.requirePivot(step); err != nil {
		return err
	}
	if len(values) == 0 {
		return invalidArgument(step, "at least one value is required")
	}
	sub, err := c.compileChild(T(part))
	if err != nil {
		return err
	}
	lhs, err := defaultProjection(sub.Pivot())
	if err != nil {
		return err
	}
	cond, err := anyOf(step, lhs, values)
	if err != nil {
		return err
	}
	sub.AddPredicate(cond)
	block, err := sub.ToSelectBlock()
	if err != nil {
		return err
	}
	c.AddPredicate(queryir.Exists{Block: block})
	return nil
}

// Is filters scalar values by a literal or predicate.
type Is struct {
	Value any
}

func (Is) StepName() string { return "is" }

func (s Is) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	lhs, err := defaultProjection(pivot)
	if err != nil {
		return err
	}
	cond, err := compareArg(s.StepName(), lhs, s.Value)
	if err != nil {
		return err
	}
	c.AddPredicate(cond)
	return nil
}

// Where filters by a sub-traversal, or compares the pivot (or the element
// labeled StartKey) with labeled path elements through Predicate. By
// modulators apply round-robin to the compared elements.
type Where struct {
	StartKey  string
	Predicate *predicate.P
	Traversal *Traversal
	By        []Traversal
}

func (Where) StepName() string { return "where" }

func (s Where) apply(c *Context) error {
	if s.Traversal != nil {
		sub, err := c.compileChild(*s.Traversal)
		if err != nil {
			return err
		}
		cond, err := sub.ToBoolean()
		if err != nil {
			return err
		}
		c.AddPredicate(cond)
		return nil
	}
	if s.Predicate == nil {
		return invalidArgument(s.StepName(), "where() needs a traversal or a predicate")
	}

	ring := &traversalRing{items: s.By}
	var first Variable
	if s.StartKey != "" {
		var by []Traversal
		if len(s.By) > 0 {
			by = []Traversal{ring.Next()}
		}
		sel, err := c.selectVariable(PopLast, []string{s.StartKey}, by)
		if err != nil {
			return err
		}
		first = sel
	} else {
		pivot, err := c.requirePivot(s.StepName())
		if err != nil {
			return err
		}
		first = pivot
	}

	cond, err := c.wherePredicate(s.StepName(), first, *s.Predicate, ring)
	if err != nil {
		return err
	}
	c.AddPredicate(cond)
	return nil
}

// And keeps elements for which every sub-traversal produces a result.
type And struct{ Traversals []Traversal }

// Or keeps elements for which any sub-traversal produces a result.
type Or struct{ Traversals []Traversal }

func (And) StepName() string { return "and" }
func (Or) StepName() string  { return "or" }

func (s And) apply(c *Context) error { return c.connective(s.StepName(), s.Traversals, true) }
func (s Or) apply(c *Context) error  { return c.connective(s.StepName(), s.Traversals, false) }

func (c *Context) connective(step string, ts []Traversal, and bool) error {
	if len(ts) == 0 {
		return invalidArgument(step, "at least one traversal is required")
	}
	subs, err := c.compileChildren(ts)
	if err != nil {
		return err
	}
	terms := make([]queryir.Boolean, 0, len(subs))
	for _, sub := range subs {
		cond, err := sub.ToBoolean()
		if err != nil {
			return err
		}
		terms = append(terms, cond)
	}
	if and {
		c.AddPredicate(queryir.And{Terms: terms})
	} else {
		c.AddPredicate(queryir.Or{Terms: terms})
	}
	return nil
}

// Not keeps elements for which the sub-traversal produces nothing.
type Not struct {
	Traversal Traversal
}

func (Not) StepName() string { return "not" }

func (s Not) apply(c *Context) error {
	sub, err := c.compileChild(s.Traversal)
	if err != nil {
		return err
	}
	block, err := sub.ToSelectBlock()
	if err != nil {
		return err
	}
	c.AddPredicate(queryir.Not{Expr: queryir.Exists{Block: block}})
	return nil
}

// Dedup removes duplicates, compared on the labeled path elements when
// Labels is set and through By when given.
type Dedup struct {
	Labels []string
	By     *Traversal
	Scope  Scope
}

func (Dedup) StepName() string { return "dedup" }

func (s Dedup) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	for _, label := range s.Labels {
		if _, err := c.selectVariable(PopLast, []string{label}, nil); err != nil {
			return err
		}
	}
	var by *Context
	if s.By != nil {
		if by, err = c.compileChild(*s.By); err != nil {
			return err
		}
	}

	if s.Scope == ScopeLocal {
		d := newFunctionVariable("DedupLocal", TypeTable, pivot)
		d.Args = strLits(s.Labels)
		if by != nil {
			d.Subqueries = append(d.Subqueries, by)
		}
		c.Add(d, true)
		return c.SetPivot(d)
	}

	dup := c.duplicateAndReset()
	d := newFunctionVariable("Dedup", pivot.Type(), nil)
	d.Args = strLits(s.Labels)
	d.Subqueries = []*Context{dup}
	if by != nil {
		d.Subqueries = append(d.Subqueries, by)
	}
	d.Sources = []Variable{pivot}
	c.Add(d, true)
	return c.SetPivot(d)
}

// Range keeps elements [Low, High). High of -1 means no upper bound.
// FromEnd counts from the end of the stream.
type Range struct {
	Low, High int64
	Scope     Scope
	FromEnd   bool
}

// Limit keeps the first N elements.
type Limit struct {
	N     int64
	Scope Scope
}

// Skip drops the first N elements.
type Skip struct {
	N     int64
	Scope Scope
}

// Tail keeps the last N elements.
type Tail struct {
	N     int64
	Scope Scope
}

func (Range) StepName() string { return "range" }
func (Limit) StepName() string { return "limit" }
func (Skip) StepName() string  { return "skip" }
func (Tail) StepName() string  { return "tail" }

func (s Range) apply(c *Context) error {
	return c.rangeStep(s.StepName(), s.Low, s.High, s.Scope, s.FromEnd)
}

func (s Limit) apply(c *Context) error {
	return c.rangeStep(s.StepName(), 0, s.N, s.Scope, false)
}

func (s Skip) apply(c *Context) error {
	return c.rangeStep(s.StepName(), s.N, -1, s.Scope, false)
}

func (s Tail) apply(c *Context) error {
	return c.rangeStep(s.StepName(), 0, s.N, s.Scope, true)
}

func (c *Context) rangeStep(step string, low, high int64, scope Scope, fromEnd bool) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	if low < 0 || high < -1 || (high != -1 && high < low) {
		return invalidArgument(step, "invalid range [%d, %d)", low, high)
	}
	args := []queryir.Scalar{intLit(low), intLit(high), boolLit(fromEnd)}

	if scope == ScopeLocal {
		r := newFunctionVariable("RangeLocal", TypeTable, pivot)
		r.Args = args
		c.Add(r, true)
		return c.SetPivot(r)
	}

	dup := c.duplicateAndReset()
	r := newFunctionVariable("Range", pivot.Type(), nil)
	r.Args = args
	r.Subqueries = []*Context{dup}
	r.Sources = []Variable{pivot}
	c.Add(r, true)
	return c.SetPivot(r)
}

// Coin keeps each element with the given probability.
type Coin struct {
	Probability float64
}

func (Coin) StepName() string { return "coin" }

func (s Coin) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.Probability < 0 || s.Probability > 1 {
		return invalidArgument(s.StepName(), "probability %v is outside [0, 1]", s.Probability)
	}
	fn := newFunctionVariable("Coin", pivot.Type(), pivot)
	fn.Args = []queryir.Scalar{queryir.Literal{Value: ir.IRFloat(s.Probability)}}
	c.Add(fn, true)
	return nil
}

// Sample keeps N elements chosen at random. It does not move the pivot.
type Sample struct {
	N     int64
	Scope Scope
}

func (Sample) StepName() string { return "sample" }

func (s Sample) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if s.N < 0 {
		return invalidArgument(s.StepName(), "sample size %d is negative", s.N)
	}
	fn := newFunctionVariable("Sample", pivot.Type(), pivot)
	fn.Args = []queryir.Scalar{intLit(s.N), strLit(s.Scope.String())}
	c.Add(fn, true)
	return nil
}

// SimplePath keeps traversers whose path (between the From and To labels,
// when set) does not repeat an element.
type SimplePath struct{ From, To string }

// CyclicPath keeps traversers whose path repeats an element.
type CyclicPath struct{ From, To string }

func (SimplePath) StepName() string { return "simplePath" }
func (CyclicPath) StepName() string { return "cyclicPath" }

func (s SimplePath) apply(c *Context) error {
	return c.pathFilter(s.StepName(), "SimplePath", s.From, s.To)
}

func (s CyclicPath) apply(c *Context) error {
	return c.pathFilter(s.StepName(), "CyclicPath", s.From, s.To)
}

func (c *Context) pathFilter(step, fn, from, to string) error {
	if _, err := c.requirePivot(step); err != nil {
		return err
	}
	path, err := c.generatePath(nil, from, to)
	if err != nil {
		return err
	}
	f := newFunctionVariable(fn, TypeScalar, path)
	c.Add(f, true)
	return nil
}

// TimeLimit bounds traversal time. It cannot be expressed as a query and is
// rejected.
type TimeLimit struct {
	Millis int64
}

func (TimeLimit) StepName() string { return "timeLimit" }

func (s TimeLimit) apply(*Context) error {
	return notImplemented(s.StepName())
}
