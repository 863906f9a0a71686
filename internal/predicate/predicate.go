// Package predicate provides the comparison predicates a traversal passes to
// has(), is() and where(). The compiler turns them into boolean expressions;
// nothing in this package evaluates them.
package predicate

import (
	"fmt"
	"strings"

	"github.com/roach88/gview/internal/ir"
)

// Op names a comparison operator.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpWithin  Op = "within"
	OpWithout Op = "without"
	OpInside  Op = "inside"
	OpOutside Op = "outside"
	OpBetween Op = "between"
	OpAnd     Op = "and"
	OpOr      Op = "or"
)

// P is a predicate: a comparison against literal values, or a conjunction /
// disjunction of other predicates.
//
// Arity by operator:
//   - eq, neq, lt, lte, gt, gte: exactly one value
//   - within, without: any number of values (zero is allowed and never matches / always matches)
//   - inside, outside, between: exactly two values (low, high)
//   - and, or: two or more Terms, no values
type P struct {
	Op     Op
	Values []ir.IRValue
	Terms  []P
}

func Eq(v ir.IRValue) P  { return P{Op: OpEq, Values: []ir.IRValue{v}} }
func Neq(v ir.IRValue) P { return P{Op: OpNeq, Values: []ir.IRValue{v}} }
func Lt(v ir.IRValue) P  { return P{Op: OpLt, Values: []ir.IRValue{v}} }
func Lte(v ir.IRValue) P { return P{Op: OpLte, Values: []ir.IRValue{v}} }
func Gt(v ir.IRValue) P  { return P{Op: OpGt, Values: []ir.IRValue{v}} }
func Gte(v ir.IRValue) P { return P{Op: OpGte, Values: []ir.IRValue{v}} }

// Within matches any of vs.
func Within(vs ...ir.IRValue) P { return P{Op: OpWithin, Values: vs} }

// Without matches none of vs.
func Without(vs ...ir.IRValue) P { return P{Op: OpWithout, Values: vs} }

// Inside matches low < x < high.
func Inside(low, high ir.IRValue) P { return P{Op: OpInside, Values: []ir.IRValue{low, high}} }

// Outside matches x < low or x > high.
func Outside(low, high ir.IRValue) P { return P{Op: OpOutside, Values: []ir.IRValue{low, high}} }

// Between matches low <= x < high.
func Between(low, high ir.IRValue) P { return P{Op: OpBetween, Values: []ir.IRValue{low, high}} }

// And combines predicates that must all hold.
func And(terms ...P) P { return P{Op: OpAnd, Terms: terms} }

// Or combines predicates of which at least one must hold.
func Or(terms ...P) P { return P{Op: OpOr, Terms: terms} }

// IsComposite reports whether p is an And or Or predicate.
func (p P) IsComposite() bool {
	return p.Op == OpAnd || p.Op == OpOr
}

// Validate checks operator arity.
func (p P) Validate() error {
	switch p.Op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		if len(p.Values) != 1 {
			return fmt.Errorf("predicate %s takes 1 value, got %d", p.Op, len(p.Values))
		}
	case OpWithin, OpWithout:
	case OpInside, OpOutside, OpBetween:
		if len(p.Values) != 2 {
			return fmt.Errorf("predicate %s takes 2 values, got %d", p.Op, len(p.Values))
		}
	case OpAnd, OpOr:
		if len(p.Terms) < 2 {
			return fmt.Errorf("predicate %s needs at least 2 terms, got %d", p.Op, len(p.Terms))
		}
		for i, term := range p.Terms {
			if err := term.Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", p.Op, i, err)
			}
		}
	default:
		return fmt.Errorf("unknown predicate operator %q", p.Op)
	}
	return nil
}

// ParseOp resolves an operator name, case-insensitively.
func ParseOp(name string) (Op, error) {
	op := Op(strings.ToLower(name))
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpWithin, OpWithout,
		OpInside, OpOutside, OpBetween, OpAnd, OpOr:
		return op, nil
	}
	return "", fmt.Errorf("unknown predicate operator %q", name)
}

// String renders p in traversal syntax, e.g. gt(29) or and(gt(1), lt(5)).
func (p P) String() string {
	var b strings.Builder
	b.WriteString(string(p.Op))
	b.WriteByte('(')
	if p.IsComposite() {
		for i, term := range p.Terms {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(term.String())
		}
	} else {
		for i, v := range p.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ir.Text(v))
		}
	}
	b.WriteByte(')')
	return b.String()
}
