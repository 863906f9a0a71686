package compiler

import (
	"encoding/json"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/predicate"
	"github.com/roach88/gview/internal/queryir"
)

// Step is one traversal step. Applying a step mutates the context; it
// leaves the pivot unchanged or moves it to a variable the step added.
type Step interface {
	StepName() string
	apply(c *Context) error
}

// Traversal is an ordered sequence of steps. The empty traversal is the
// identity.
type Traversal struct {
	Steps []Step
}

// T builds a traversal from steps.
func T(steps ...Step) Traversal {
	return Traversal{Steps: steps}
}

// Compile compiles a traversal into a fresh root context.
func Compile(t Traversal) (*Context, error) {
	c := NewContext()
	if err := c.Apply(t.Steps...); err != nil {
		return nil, err
	}
	return c, nil
}

// Scope selects whether a step works across the whole stream (global) or
// within each element's collection (local).
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLocal
)

func (s Scope) String() string {
	if s == ScopeLocal {
		return "local"
	}
	return "global"
}

// Pop selects which of several same-labeled path elements select() returns.
type Pop string

const (
	PopMixed Pop = "mixed"
	PopFirst Pop = "first"
	PopLast  Pop = "last"
	PopAll   Pop = "all"
)

// Column selects the keys or the values of a map.
type Column string

const (
	ColumnKeys   Column = "keys"
	ColumnValues Column = "values"
)

// traversalRing hands out by() modulators round-robin. An empty ring
// yields the identity traversal.
type traversalRing struct {
	items []Traversal
	next  int
}

func (r *traversalRing) Next() Traversal {
	if len(r.items) == 0 {
		return Traversal{}
	}
	t := r.items[r.next%len(r.items)]
	r.next++
	return t
}

func strLit(s string) queryir.Scalar { return queryir.Literal{Value: ir.IRString(s)} }

func intLit(n int64) queryir.Scalar { return queryir.Literal{Value: ir.IRInt(n)} }

func boolLit(b bool) queryir.Scalar { return queryir.Literal{Value: ir.IRBool(b)} }

func strLits(ss []string) []queryir.Scalar {
	out := make([]queryir.Scalar, 0, len(ss))
	for _, s := range ss {
		out = append(out, strLit(s))
	}
	return out
}

// column references v.prop without adding prop to v's projected set. Used
// for join conditions on protocol fields the planner reads anyway.
func column(v Variable, prop string) (queryir.Scalar, error) {
	name, err := v.Name()
	if err != nil {
		return nil, err
	}
	return queryir.ColumnRef{Table: name, Column: prop}, nil
}

// literalArg converts a step argument to a literal. Only strings, numbers
// and booleans are accepted.
func literalArg(step string, v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRString, ir.IRInt, ir.IRFloat, ir.IRBool:
		return val.(ir.IRValue), nil
	case string, bool, int, int32, int64, float32, float64, json.Number:
		out, err := ir.FromGo(val)
		if err != nil {
			return nil, invalidArgument(step, "%v", err)
		}
		return out, nil
	}
	return nil, invalidArgument(step, "argument of type %T is not a string, number, boolean or predicate", v)
}

// compareArg builds lhs = value, or the predicate's condition when arg is a
// predicate.
func compareArg(step string, lhs queryir.Scalar, arg any) (queryir.Boolean, error) {
	switch p := arg.(type) {
	case predicate.P:
		return predicateExpr(step, lhs, p)
	case *predicate.P:
		if p == nil {
			return nil, invalidArgument(step, "nil predicate")
		}
		return predicateExpr(step, lhs, *p)
	}
	v, err := literalArg(step, arg)
	if err != nil {
		return nil, err
	}
	return queryir.Compare{Left: lhs, Op: queryir.OpEq, Right: queryir.Literal{Value: v}}, nil
}

// anyOf ORs lhs = v over values.
func anyOf(step string, lhs queryir.Scalar, values []any) (queryir.Boolean, error) {
	var out queryir.Boolean
	for _, v := range values {
		b, err := compareArg(step, lhs, v)
		if err != nil {
			return nil, err
		}
		out = queryir.ConjoinOr(out, b)
	}
	return out, nil
}

var compareOps = map[predicate.Op]queryir.CompareOp{
	predicate.OpEq:  queryir.OpEq,
	predicate.OpNeq: queryir.OpNeq,
	predicate.OpLt:  queryir.OpLt,
	predicate.OpLte: queryir.OpLte,
	predicate.OpGt:  queryir.OpGt,
	predicate.OpGte: queryir.OpGte,
}

// predicateExpr compiles p applied to lhs. And/Or recurse so that the tree
// keeps AND below OR where the predicate put it.
func predicateExpr(step string, lhs queryir.Scalar, p predicate.P) (queryir.Boolean, error) {
	if err := p.Validate(); err != nil {
		return nil, invalidArgument(step, "%v", err)
	}
	for _, v := range p.Values {
		switch v.(type) {
		case ir.IRArray, ir.IRObject:
			return nil, invalidArgument(step, "predicate %s compares against a composite value", p.Op)
		}
	}

	lit := func(i int) queryir.Scalar { return queryir.Literal{Value: p.Values[i]} }
	cmp := func(op queryir.CompareOp, i int) queryir.Boolean {
		return queryir.Compare{Left: lhs, Op: op, Right: lit(i)}
	}

	switch p.Op {
	case predicate.OpAnd, predicate.OpOr:
		terms := make([]queryir.Boolean, 0, len(p.Terms))
		for _, t := range p.Terms {
			b, err := predicateExpr(step, lhs, t)
			if err != nil {
				return nil, err
			}
			terms = append(terms, b)
		}
		if p.Op == predicate.OpAnd {
			return queryir.And{Terms: terms}, nil
		}
		return queryir.Or{Terms: terms}, nil
	case predicate.OpWithin, predicate.OpWithout:
		values := make([]queryir.Scalar, len(p.Values))
		for i := range p.Values {
			values[i] = lit(i)
		}
		return queryir.In{Expr: lhs, Values: values, Negated: p.Op == predicate.OpWithout}, nil
	case predicate.OpInside:
		return queryir.And{Terms: []queryir.Boolean{cmp(queryir.OpGt, 0), cmp(queryir.OpLt, 1)}}, nil
	case predicate.OpOutside:
		return queryir.Or{Terms: []queryir.Boolean{cmp(queryir.OpLt, 0), cmp(queryir.OpGt, 1)}}, nil
	case predicate.OpBetween:
		return queryir.And{Terms: []queryir.Boolean{cmp(queryir.OpGte, 0), cmp(queryir.OpLt, 1)}}, nil
	default:
		return cmp(compareOps[p.Op], 0), nil
	}
}
