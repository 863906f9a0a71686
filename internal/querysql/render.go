package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// Render renders a select block as logical relational text: one clause per
// line at the top level, nested blocks inline in parentheses.
//
//	SELECT N_2.* AS N_2
//	FROM Node AS N_0, Node AS N_2
//	MATCH N_0-[Edge AS E_1]->N_2
//	WHERE E_1.label = 'knows'
//
// The output is deterministic for a given block, which makes it suitable
// for golden snapshots.
func Render(block *queryir.SelectBlock) (string, error) {
	if block == nil {
		return "", fmt.Errorf("cannot render nil select block")
	}
	return renderBlock(block, "\n")
}

func renderBlock(b *queryir.SelectBlock, sep string) (string, error) {
	var clauses []string

	sel := "*"
	if len(b.Select) > 0 {
		parts := make([]string, 0, len(b.Select))
		for _, el := range b.Select {
			expr, err := renderScalar(el.Expr)
			if err != nil {
				return "", fmt.Errorf("select: %w", err)
			}
			if el.Alias != "" {
				expr += " AS " + el.Alias
			}
			parts = append(parts, expr)
		}
		sel = strings.Join(parts, ", ")
	}
	clauses = append(clauses, "SELECT "+sel)

	if len(b.From) > 0 {
		from, err := renderFrom(b.From)
		if err != nil {
			return "", fmt.Errorf("from: %w", err)
		}
		clauses = append(clauses, "FROM "+from)
	}

	if len(b.Match) > 0 {
		paths := make([]string, 0, len(b.Match))
		for _, m := range b.Match {
			paths = append(paths, renderMatchPath(m))
		}
		clauses = append(clauses, "MATCH "+strings.Join(paths, ", "))
	}

	if b.Where != nil {
		where, err := renderBoolean(b.Where)
		if err != nil {
			return "", fmt.Errorf("where: %w", err)
		}
		clauses = append(clauses, "WHERE "+where)
	}

	return strings.Join(clauses, sep), nil
}

// renderFrom lists named tables separated by commas; table functions are
// cross-applied to everything before them.
func renderFrom(refs []queryir.TableRef) (string, error) {
	var b strings.Builder
	for i, ref := range refs {
		switch t := ref.(type) {
		case queryir.NamedTable:
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s AS %s", t.Name, t.Alias)
		case queryir.TableFunction:
			if i > 0 {
				b.WriteString(" CROSS APPLY ")
			}
			args, err := renderArgs(t.Args)
			if err != nil {
				return "", fmt.Errorf("%s: %w", t.Name, err)
			}
			fmt.Fprintf(&b, "%s(%s) AS %s", t.Name, args, t.Alias)
		default:
			return "", fmt.Errorf("unsupported table reference: %T", ref)
		}
	}
	return b.String(), nil
}

func renderMatchPath(m queryir.MatchPath) string {
	sink := m.Sink
	if sink == "" {
		sink = "()"
	}
	edge := "[Edge AS " + m.Edge + "]"
	switch m.Direction {
	case queryir.Backward:
		return m.Source + "<-" + edge + "-" + sink
	case queryir.Both:
		return m.Source + "-" + edge + "-" + sink
	default:
		return m.Source + "-" + edge + "->" + sink
	}
}

func renderArgs(args []queryir.Scalar) (string, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, err := renderScalar(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), nil
}

// renderScalar renders a scalar expression.
func renderScalar(s queryir.Scalar) (string, error) {
	switch e := s.(type) {
	case queryir.ColumnRef:
		return e.Table + "." + quoteIdent(e.Column), nil
	case *queryir.ColumnRef:
		return renderScalar(*e)
	case queryir.Star:
		return e.Table + ".*", nil
	case *queryir.Star:
		return renderScalar(*e)
	case queryir.Literal:
		return renderLiteral(e.Value), nil
	case *queryir.Literal:
		return renderScalar(*e)
	case queryir.FunctionCall:
		args, err := renderArgs(e.Args)
		if err != nil {
			return "", err
		}
		return e.Name + "(" + args + ")", nil
	case *queryir.FunctionCall:
		return renderScalar(*e)
	case queryir.ScalarSubquery:
		inner, err := renderBlock(e.Block, " ")
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case *queryir.ScalarSubquery:
		return renderScalar(*e)
	default:
		return "", fmt.Errorf("unsupported scalar type: %T", s)
	}
}

// renderBoolean renders a search condition. AND binds tighter than OR, so
// only an OR nested in an AND is parenthesised.
func renderBoolean(e queryir.Boolean) (string, error) {
	switch b := e.(type) {
	case queryir.Compare:
		l, err := renderScalar(b.Left)
		if err != nil {
			return "", err
		}
		r, err := renderScalar(b.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", l, b.Op, r), nil
	case *queryir.Compare:
		return renderBoolean(*b)
	case queryir.In:
		if len(b.Values) == 0 {
			if b.Negated {
				return "1 = 1", nil
			}
			return "1 = 0", nil
		}
		x, err := renderScalar(b.Expr)
		if err != nil {
			return "", err
		}
		vals, err := renderArgs(b.Values)
		if err != nil {
			return "", err
		}
		op := "IN"
		if b.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", x, op, vals), nil
	case *queryir.In:
		return renderBoolean(*b)
	case queryir.And:
		return renderConnective(b.Terms, " AND ", "TRUE", true)
	case *queryir.And:
		return renderBoolean(*b)
	case queryir.Or:
		return renderConnective(b.Terms, " OR ", "FALSE", false)
	case *queryir.Or:
		return renderBoolean(*b)
	case queryir.Not:
		inner, err := renderBoolean(b.Expr)
		if err != nil {
			return "", err
		}
		if isConnective(b.Expr) {
			inner = "(" + inner + ")"
		}
		return "NOT " + inner, nil
	case *queryir.Not:
		return renderBoolean(*b)
	case queryir.Exists:
		if b.Block == nil {
			return "", fmt.Errorf("EXISTS without a block")
		}
		inner, err := renderBlock(b.Block, " ")
		if err != nil {
			return "", err
		}
		return "EXISTS (" + inner + ")", nil
	case *queryir.Exists:
		return renderBoolean(*b)
	case queryir.True, *queryir.True:
		return "TRUE", nil
	default:
		return "", fmt.Errorf("unsupported boolean type: %T", e)
	}
}

func renderConnective(terms []queryir.Boolean, op, empty string, and bool) (string, error) {
	if len(terms) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		s, err := renderBoolean(t)
		if err != nil {
			return "", err
		}
		if and && isOr(t) {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, op), nil
}

func isOr(e queryir.Boolean) bool {
	switch e.(type) {
	case queryir.Or, *queryir.Or:
		return true
	}
	return false
}

func isConnective(e queryir.Boolean) bool {
	switch e.(type) {
	case queryir.And, *queryir.And, queryir.Or, *queryir.Or:
		return true
	}
	return false
}

// renderLiteral renders a constant. Strings are single-quoted with embedded
// quotes doubled; composite values render as JSON text.
func renderLiteral(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "NULL"
	case ir.IRString:
		return quoteString(string(val))
	case ir.IRArray, ir.IRObject:
		return quoteString(ir.Text(val))
	default:
		return ir.Text(val)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent double-quotes a property name that is not a plain identifier.
func quoteIdent(name string) string {
	if identRe.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
