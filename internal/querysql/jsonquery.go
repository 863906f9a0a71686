package querysql

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect selects the backend query language.
type Dialect string

const (
	// DialectSQL is the SQL-like dialect: SELECT ... FROM Node alias ...
	DialectSQL Dialect = "sql"

	// DialectDocument is the document-traversal dialect: FOR alias IN ('Node') ...
	DialectDocument Dialect = "document"
)

var (
	// ErrNotImplemented is returned for dialects without an emitter and for
	// traversal sources with no pattern form.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupported is returned when a predicate cannot be expressed in the
	// target dialect or evaluated by the pattern walk.
	ErrUnsupported = errors.New("unsupported construct")
)

// ParseDialect resolves a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case DialectSQL, DialectDocument:
		return d, nil
	}
	return "", fmt.Errorf("dialect %q: %w", name, ErrNotImplemented)
}

// JsonQuery is one compiled vertex query: the clause texts plus the
// property lists the decoder needs to turn result rows into records.
//
// NodeProperties[0] is the node alias (the whole node is always
// projected); the rest are the node properties copied into each record.
// When EdgeProperties is non-empty its first three entries are the edge
// alias, the reverse-adjacency flag and the start-vertex-is-origin flag
// ("true"/"false"), followed by the edge property names.
type JsonQuery struct {
	SelectClause         string
	JoinClause           string
	WhereSearchCondition string
	Alias                string

	NodeProperties []string
	EdgeProperties []string
}

// String emits the query text for dialect.
func (q JsonQuery) String(d Dialect) (string, error) {
	var b strings.Builder
	switch d {
	case DialectSQL:
		b.WriteString("SELECT ")
		b.WriteString(q.SelectClause)
		b.WriteString(" FROM Node ")
		b.WriteString(q.Alias)
		if q.JoinClause != "" {
			b.WriteByte(' ')
			b.WriteString(q.JoinClause)
		}
		if q.WhereSearchCondition != "" {
			b.WriteString(" WHERE ")
			b.WriteString(q.WhereSearchCondition)
		}
	case DialectDocument:
		b.WriteString("FOR ")
		b.WriteString(q.Alias)
		b.WriteString(" IN ('Node') ")
		if q.WhereSearchCondition != "" {
			b.WriteString("WHERE ")
			b.WriteString(q.WhereSearchCondition)
			b.WriteByte(' ')
		}
		b.WriteString(q.SelectClause)
	default:
		return "", fmt.Errorf("dialect %q: %w", d, ErrNotImplemented)
	}
	return b.String(), nil
}

// ParseJsonQuery recovers the clause fields of text emitted by String.
// Property lists are not part of the text and are left empty.
//
// The document dialect's select clause must start with "RETURN ".
func ParseJsonQuery(text string, d Dialect) (JsonQuery, error) {
	switch d {
	case DialectSQL:
		return parseSQL(text)
	case DialectDocument:
		return parseDocument(text)
	default:
		return JsonQuery{}, fmt.Errorf("dialect %q: %w", d, ErrNotImplemented)
	}
}

func parseSQL(text string) (JsonQuery, error) {
	const selectKw, fromKw, whereKw = "SELECT ", " FROM Node ", " WHERE "

	if !strings.HasPrefix(text, selectKw) {
		return JsonQuery{}, fmt.Errorf("sql query must start with SELECT")
	}
	rest := text[len(selectKw):]
	i := indexUnquoted(rest, fromKw)
	if i < 0 {
		return JsonQuery{}, fmt.Errorf("sql query has no FROM Node clause")
	}
	q := JsonQuery{SelectClause: rest[:i]}
	rest = rest[i+len(fromKw):]

	q.Alias, rest, _ = strings.Cut(rest, " ")
	if q.Alias == "" {
		return JsonQuery{}, fmt.Errorf("sql query has no alias")
	}
	if rest == "" {
		return q, nil
	}

	if where, ok := strings.CutPrefix(rest, whereKw[1:]); ok {
		q.WhereSearchCondition = where
		return q, nil
	}
	if j := indexUnquoted(rest, whereKw); j >= 0 {
		q.JoinClause = rest[:j]
		q.WhereSearchCondition = rest[j+len(whereKw):]
		return q, nil
	}
	q.JoinClause = rest
	return q, nil
}

func parseDocument(text string) (JsonQuery, error) {
	const forKw, inKw, whereKw, returnKw = "FOR ", " IN ('Node') ", "WHERE ", " RETURN "

	if !strings.HasPrefix(text, forKw) {
		return JsonQuery{}, fmt.Errorf("document query must start with FOR")
	}
	rest := text[len(forKw):]
	i := strings.Index(rest, inKw)
	if i <= 0 {
		return JsonQuery{}, fmt.Errorf("document query has no IN ('Node') clause")
	}
	q := JsonQuery{Alias: rest[:i]}
	rest = rest[i+len(inKw):]

	where, ok := strings.CutPrefix(rest, whereKw)
	if !ok {
		q.SelectClause = rest
		return q, nil
	}
	j := indexUnquoted(where, returnKw)
	if j < 0 {
		return JsonQuery{}, fmt.Errorf("document query has no RETURN clause")
	}
	q.WhereSearchCondition = where[:j]
	q.SelectClause = where[j+1:]
	return q, nil
}

// indexUnquoted returns the index of the first occurrence of kw in s that
// lies outside a single-quoted literal, or -1. A doubled quote inside a
// literal is an escaped quote and keeps the literal open.
func indexUnquoted(s, kw string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			quoted = !quoted
			continue
		}
		if !quoted && strings.HasPrefix(s[i:], kw) {
			return i
		}
	}
	return -1
}
