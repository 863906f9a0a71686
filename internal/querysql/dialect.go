package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// clauseWriter renders the predicates of one pattern node (and, when it is
// cross-applied, of its root edge) in a dialect.
type clauseWriter interface {
	// selectClause projects the node document and the edge document.
	selectClause(edge string) string

	// edgeJoin cross-applies the adjacency list column of the node.
	edgeJoin(edge, column string) string

	// nodePredicate renders one top-level conjunct over the node.
	nodePredicate(p queryir.Boolean) (string, error)

	// edgePredicate renders one conjunct over the cross-applied edge, or ""
	// when the dialect filters edges client-side.
	edgePredicate(p queryir.Boolean, column string) (string, error)

	// idFilter restricts the node to ids.
	idFilter(ids []string) string

	// joins returns the extra joins created while rendering predicates.
	joins() []string
}

func newClauseWriter(d Dialect, alias, edge string) (clauseWriter, error) {
	switch d {
	case DialectSQL:
		return &sqlWriter{alias: alias, edge: edge}, nil
	case DialectDocument:
		return &documentWriter{alias: alias}, nil
	default:
		return nil, fmt.Errorf("dialect %q: %w", d, ErrNotImplemented)
	}
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnsupported)
}

// jsonPath builds a JSON1 path selecting one top-level key.
func jsonPath(key string) string {
	return quoteString(`$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`)
}

// sqlWriter targets SQLite with the JSON1 functions over the Node(id,
// label, doc) table. Positive top-level property comparisons join the
// property's values with json_each, so a multi-valued property produces one
// row per matching value. Comparisons under OR or NOT go through an EXISTS
// sub-query instead, which keeps absent properties from dropping the row.
type sqlWriter struct {
	alias string
	edge  string
	extra []string
	seq   int
}

func (w *sqlWriter) selectClause(edge string) string {
	sel := w.alias + ".doc AS " + w.alias
	if edge != "" {
		sel += ", " + edge + ".value AS " + edge
	}
	return sel
}

func (w *sqlWriter) edgeJoin(edge, column string) string {
	return fmt.Sprintf("JOIN json_each(%s.doc,%s) AS %s", w.alias, jsonPath(column), edge)
}

func (w *sqlWriter) joins() []string { return w.extra }

func (w *sqlWriter) idFilter(ids []string) string {
	vals := make([]string, len(ids))
	for i, id := range ids {
		vals[i] = quoteString(id)
	}
	return w.alias + ".id IN (" + strings.Join(vals, ", ") + ")"
}

func (w *sqlWriter) nextAlias() string {
	a := fmt.Sprintf("%s_p%d", w.alias, w.seq)
	w.seq++
	return a
}

func (w *sqlWriter) nodePredicate(p queryir.Boolean) (string, error) {
	return w.cond(p, true)
}

// cond renders a search condition over the node. top is true for a
// top-level conjunct, where property comparisons may fan out.
func (w *sqlWriter) cond(p queryir.Boolean, top bool) (string, error) {
	switch b := p.(type) {
	case queryir.Compare:
		col, lit, op, err := w.comparison(b)
		if err != nil {
			return "", err
		}
		return w.propertyTest(col, func(x string) string {
			return fmt.Sprintf("%s %s %s", x, op, sqlLiteral(lit))
		}, top)
	case *queryir.Compare:
		return w.cond(*b, top)
	case queryir.In:
		col, err := w.nodeColumn(b.Expr)
		if err != nil {
			return "", err
		}
		if len(b.Values) == 0 {
			return renderBoolean(b)
		}
		vals, err := literalList(b.Values, sqlLiteral)
		if err != nil {
			return "", err
		}
		op := " IN ("
		if b.Negated {
			op = " NOT IN ("
		}
		return w.propertyTest(col, func(x string) string {
			return x + op + vals + ")"
		}, top)
	case *queryir.In:
		return w.cond(*b, top)
	case queryir.And:
		return w.connective(b.Terms, " AND ", "1 = 1", top)
	case *queryir.And:
		return w.cond(*b, top)
	case queryir.Or:
		return w.connective(b.Terms, " OR ", "1 = 0", false)
	case *queryir.Or:
		return w.cond(*b, top)
	case queryir.Not:
		inner, err := w.cond(b.Expr, false)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *queryir.Not:
		return w.cond(*b, top)
	case queryir.Exists:
		keys, err := existenceKeys(b, w.alias)
		if err != nil {
			return "", err
		}
		tests := make([]string, len(keys))
		for i, k := range keys {
			tests[i] = fmt.Sprintf("json_type(%s.doc,%s) IS NOT NULL", w.alias, jsonPath(k))
		}
		if len(tests) == 1 {
			return tests[0], nil
		}
		return "(" + strings.Join(tests, " OR ") + ")", nil
	case *queryir.Exists:
		return w.cond(*b, top)
	case queryir.True, *queryir.True:
		return "1 = 1", nil
	default:
		return "", unsupported("predicate %T", p)
	}
}

func (w *sqlWriter) connective(terms []queryir.Boolean, op, empty string, top bool) (string, error) {
	if len(terms) == 0 {
		return empty, nil
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := w.cond(t, top)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

// propertyTest applies test to the node column. id and label are table
// columns; any other property is read from the document.
func (w *sqlWriter) propertyTest(col string, test func(string) string, top bool) (string, error) {
	switch col {
	case ir.KeyID, ir.KeyLabel:
		return test(w.alias + "." + col), nil
	}
	if top {
		j := w.nextAlias()
		w.extra = append(w.extra, fmt.Sprintf("JOIN json_each(%s.doc,%s) AS %s", w.alias, jsonPath(col), j))
		return test(j + ".value"), nil
	}
	j := w.nextAlias()
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s.doc,%s) AS %s WHERE %s)",
		w.alias, jsonPath(col), j, test(j+".value")), nil
}

func (w *sqlWriter) comparison(b queryir.Compare) (string, ir.IRValue, queryir.CompareOp, error) {
	col, err := w.nodeColumn(b.Left)
	if err != nil {
		return "", nil, "", err
	}
	lit, ok := literalOf(b.Right)
	if !ok {
		return "", nil, "", unsupported("comparison with %T", b.Right)
	}
	return col, lit, b.Op, nil
}

func (w *sqlWriter) nodeColumn(s queryir.Scalar) (string, error) {
	return columnOf(s, w.alias)
}

func (w *sqlWriter) edgePredicate(p queryir.Boolean, column string) (string, error) {
	cond, err := w.edgeCond(p)
	if err != nil {
		return "", err
	}
	// A spilled adjacency list has no edge documents to test; its row must
	// survive so the decoder can expand it client-side.
	return fmt.Sprintf("(json_type(%s.doc,%s) = 'object' OR %s)", w.alias, jsonPath(column), cond), nil
}

func (w *sqlWriter) edgeCond(p queryir.Boolean) (string, error) {
	field := func(s queryir.Scalar) (string, error) {
		col, err := columnOf(s, w.edge)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("json_extract(%s.value,%s)", w.edge, jsonPath(col)), nil
	}
	switch b := p.(type) {
	case queryir.Compare:
		x, err := field(b.Left)
		if err != nil {
			return "", err
		}
		lit, ok := literalOf(b.Right)
		if !ok {
			return "", unsupported("comparison with %T", b.Right)
		}
		return fmt.Sprintf("%s %s %s", x, b.Op, sqlLiteral(lit)), nil
	case *queryir.Compare:
		return w.edgeCond(*b)
	case queryir.In:
		if len(b.Values) == 0 {
			return renderBoolean(b)
		}
		x, err := field(b.Expr)
		if err != nil {
			return "", err
		}
		vals, err := literalList(b.Values, sqlLiteral)
		if err != nil {
			return "", err
		}
		op := " IN ("
		if b.Negated {
			op = " NOT IN ("
		}
		return x + op + vals + ")", nil
	case *queryir.In:
		return w.edgeCond(*b)
	case queryir.And:
		return w.edgeConnective(b.Terms, " AND ", "1 = 1")
	case *queryir.And:
		return w.edgeCond(*b)
	case queryir.Or:
		return w.edgeConnective(b.Terms, " OR ", "1 = 0")
	case *queryir.Or:
		return w.edgeCond(*b)
	case queryir.Not:
		inner, err := w.edgeCond(b.Expr)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *queryir.Not:
		return w.edgeCond(*b)
	default:
		return "", unsupported("edge predicate %T", p)
	}
}

func (w *sqlWriter) edgeConnective(terms []queryir.Boolean, op, empty string) (string, error) {
	if len(terms) == 0 {
		return empty, nil
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := w.edgeCond(t)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

// sqlLiteral renders a constant for SQLite. JSON booleans surface from
// json_each and json_extract as 1 and 0.
func sqlLiteral(v ir.IRValue) string {
	if b, ok := v.(ir.IRBool); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return renderLiteral(v)
}

// documentWriter targets a document store addressed as alias.property.
// It has no join clause: edges are always expanded client-side.
type documentWriter struct {
	alias string
}

func (w *documentWriter) selectClause(string) string { return "RETURN " + w.alias }

func (w *documentWriter) edgeJoin(string, string) string { return "" }

func (w *documentWriter) joins() []string { return nil }

func (w *documentWriter) edgePredicate(queryir.Boolean, string) (string, error) { return "", nil }

func (w *documentWriter) idFilter(ids []string) string {
	vals := make([]string, len(ids))
	for i, id := range ids {
		vals[i] = documentLiteral(ir.IRString(id))
	}
	return w.alias + ".id IN [" + strings.Join(vals, ", ") + "]"
}

func (w *documentWriter) path(col string) string {
	if identRe.MatchString(col) {
		return w.alias + "." + col
	}
	return w.alias + "[" + documentLiteral(ir.IRString(col)) + "]"
}

var documentOps = map[queryir.CompareOp]string{
	queryir.OpEq:  "==",
	queryir.OpNeq: "!=",
	queryir.OpLt:  "<",
	queryir.OpLte: "<=",
	queryir.OpGt:  ">",
	queryir.OpGte: ">=",
}

func (w *documentWriter) nodePredicate(p queryir.Boolean) (string, error) {
	switch b := p.(type) {
	case queryir.Compare:
		col, err := columnOf(b.Left, w.alias)
		if err != nil {
			return "", err
		}
		lit, ok := literalOf(b.Right)
		if !ok {
			return "", unsupported("comparison with %T", b.Right)
		}
		return fmt.Sprintf("%s %s %s", w.path(col), documentOps[b.Op], documentLiteral(lit)), nil
	case *queryir.Compare:
		return w.nodePredicate(*b)
	case queryir.In:
		if len(b.Values) == 0 {
			if b.Negated {
				return "true", nil
			}
			return "false", nil
		}
		col, err := columnOf(b.Expr, w.alias)
		if err != nil {
			return "", err
		}
		vals, err := literalList(b.Values, documentLiteral)
		if err != nil {
			return "", err
		}
		op := " IN ["
		if b.Negated {
			op = " NOT IN ["
		}
		return w.path(col) + op + vals + "]", nil
	case *queryir.In:
		return w.nodePredicate(*b)
	case queryir.And:
		return w.connective(b.Terms, " AND ", "true")
	case *queryir.And:
		return w.nodePredicate(*b)
	case queryir.Or:
		return w.connective(b.Terms, " OR ", "false")
	case *queryir.Or:
		return w.nodePredicate(*b)
	case queryir.Not:
		inner, err := w.nodePredicate(b.Expr)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *queryir.Not:
		return w.nodePredicate(*b)
	case queryir.Exists:
		keys, err := existenceKeys(b, w.alias)
		if err != nil {
			return "", err
		}
		tests := make([]string, len(keys))
		for i, k := range keys {
			tests[i] = w.path(k) + " != null"
		}
		if len(tests) == 1 {
			return tests[0], nil
		}
		return "(" + strings.Join(tests, " OR ") + ")", nil
	case *queryir.Exists:
		return w.nodePredicate(*b)
	case queryir.True, *queryir.True:
		return "true", nil
	default:
		return "", unsupported("predicate %T", p)
	}
}

func (w *documentWriter) connective(terms []queryir.Boolean, op, empty string) (string, error) {
	if len(terms) == 0 {
		return empty, nil
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := w.nodePredicate(t)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func documentLiteral(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "null"
	case ir.IRString:
		s := strings.ReplaceAll(string(val), `\`, `\\`)
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	default:
		return ir.Text(val)
	}
}

// columnOf returns the column name of a reference to alias.
func columnOf(s queryir.Scalar, alias string) (string, error) {
	switch c := s.(type) {
	case queryir.ColumnRef:
		if c.Table != alias {
			return "", unsupported("reference to %s outside %s", c.Table, alias)
		}
		return c.Column, nil
	case *queryir.ColumnRef:
		return columnOf(*c, alias)
	default:
		return "", unsupported("operand %T", s)
	}
}

func literalOf(s queryir.Scalar) (ir.IRValue, bool) {
	switch l := s.(type) {
	case queryir.Literal:
		switch l.Value.(type) {
		case ir.IRArray, ir.IRObject:
			return nil, false
		}
		return l.Value, true
	case *queryir.Literal:
		return literalOf(*l)
	}
	return nil, false
}

func literalList(vals []queryir.Scalar, render func(ir.IRValue) string) (string, error) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		lit, ok := literalOf(v)
		if !ok {
			return "", unsupported("list element %T", v)
		}
		parts[i] = render(lit)
	}
	return strings.Join(parts, ", "), nil
}

// existenceKeys recognises the property-existence sub-query
// EXISTS (SELECT ... FROM Properties(alias.*, 'k1', ...)) and returns its keys.
func existenceKeys(e queryir.Exists, alias string) ([]string, error) {
	b := e.Block
	if b == nil || len(b.From) != 1 || len(b.Match) > 0 || b.Where != nil {
		return nil, unsupported("sub-query predicate")
	}
	fn, ok := b.From[0].(queryir.TableFunction)
	if !ok || fn.Name != "Properties" || len(fn.Args) < 2 {
		return nil, unsupported("sub-query predicate")
	}
	if star, ok := fn.Args[0].(queryir.Star); !ok || star.Table != alias {
		return nil, unsupported("property sub-query over another element")
	}
	keys := make([]string, 0, len(fn.Args)-1)
	for _, a := range fn.Args[1:] {
		lit, ok := literalOf(a)
		if !ok {
			return nil, unsupported("property key %T", a)
		}
		key, ok := lit.(ir.IRString)
		if !ok {
			return nil, unsupported("property key %s", ir.Text(lit))
		}
		keys = append(keys, string(key))
	}
	return keys, nil
}
