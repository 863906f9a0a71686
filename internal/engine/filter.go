package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// edgeMatches reports whether e passes the label restriction and the
// predicates over alias. Expanded edges never went through the backend's
// WHERE clause, so the same conditions are checked here.
func edgeMatches(e *EdgeField, alias string, labels []string, preds []queryir.Boolean) (bool, error) {
	if len(labels) > 0 && !slices.Contains(labels, e.Label) {
		return false, nil
	}
	lookup := func(col string) (ir.IRValue, bool) {
		switch col {
		case ir.KeyID:
			return ir.IRString(e.ID), true
		case ir.KeyLabel:
			return ir.IRString(e.Label), true
		case ir.KeySourceV:
			return ir.IRString(e.SourceID), true
		case ir.KeySinkV:
			return ir.IRString(e.SinkID), true
		}
		return e.Property(col)
	}
	for _, p := range preds {
		ok, err := evalBoolean(p, alias, lookup)
		if err != nil {
			return false, fmt.Errorf("edge %s: %w", e.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evalBoolean evaluates a search condition whose column references all
// point at alias. A comparison against an absent column is false.
func evalBoolean(p queryir.Boolean, alias string, lookup func(string) (ir.IRValue, bool)) (bool, error) {
	switch b := p.(type) {
	case queryir.Compare:
		left, ok, err := evalColumn(b.Left, alias, lookup)
		if err != nil || !ok {
			return false, err
		}
		right, ok := b.Right.(queryir.Literal)
		if !ok {
			return false, fmt.Errorf("cannot evaluate comparison with %T", b.Right)
		}
		return compareValues(left, b.Op, right.Value), nil
	case *queryir.Compare:
		return evalBoolean(*b, alias, lookup)
	case queryir.In:
		v, ok, err := evalColumn(b.Expr, alias, lookup)
		if err != nil || !ok {
			return false, err
		}
		found := false
		for _, s := range b.Values {
			lit, ok := s.(queryir.Literal)
			if !ok {
				return false, fmt.Errorf("cannot evaluate list element %T", s)
			}
			if ir.Equal(v, lit.Value) {
				found = true
				break
			}
		}
		return found != b.Negated, nil
	case *queryir.In:
		return evalBoolean(*b, alias, lookup)
	case queryir.And:
		for _, t := range b.Terms {
			ok, err := evalBoolean(t, alias, lookup)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *queryir.And:
		return evalBoolean(*b, alias, lookup)
	case queryir.Or:
		for _, t := range b.Terms {
			ok, err := evalBoolean(t, alias, lookup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *queryir.Or:
		return evalBoolean(*b, alias, lookup)
	case queryir.Not:
		ok, err := evalBoolean(b.Expr, alias, lookup)
		return !ok, err
	case *queryir.Not:
		return evalBoolean(*b, alias, lookup)
	case queryir.True, *queryir.True:
		return true, nil
	default:
		return false, fmt.Errorf("cannot evaluate %T client-side", p)
	}
}

func evalColumn(s queryir.Scalar, alias string, lookup func(string) (ir.IRValue, bool)) (ir.IRValue, bool, error) {
	ref, ok := s.(queryir.ColumnRef)
	if !ok {
		if ptr, isPtr := s.(*queryir.ColumnRef); isPtr {
			ref = *ptr
		} else {
			return nil, false, fmt.Errorf("cannot evaluate operand %T", s)
		}
	}
	if ref.Table != alias {
		return nil, false, fmt.Errorf("column %s.%s is outside %s", ref.Table, ref.Column, alias)
	}
	v, ok := lookup(ref.Column)
	return v, ok, nil
}

func compareValues(a ir.IRValue, op queryir.CompareOp, b ir.IRValue) bool {
	switch op {
	case queryir.OpEq:
		return ir.Equal(a, b)
	case queryir.OpNeq:
		return !ir.Equal(a, b)
	}
	c, ok := order(a, b)
	if !ok {
		return false
	}
	switch op {
	case queryir.OpLt:
		return c < 0
	case queryir.OpLte:
		return c <= 0
	case queryir.OpGt:
		return c > 0
	case queryir.OpGte:
		return c >= 0
	}
	return false
}

// order compares two numbers or two strings.
func order(a, b ir.IRValue) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	x, ok := a.(ir.IRString)
	if !ok {
		return 0, false
	}
	y, ok := b.(ir.IRString)
	if !ok {
		return 0, false
	}
	return strings.Compare(string(x), string(y)), true
}

func number(v ir.IRValue) (float64, bool) {
	switch n := v.(type) {
	case ir.IRInt:
		return float64(n), true
	case ir.IRFloat:
		return float64(n), true
	}
	return 0, false
}
