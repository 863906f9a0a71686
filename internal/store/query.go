package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/gview/internal/engine"
	"github.com/roach88/gview/internal/ir"
)

// ExecuteQuery runs emitted SQL against the Node table. Columns holding
// JSON objects or arrays (vertex documents, cross-applied edges) decode to
// composite values; other columns keep their SQLite type.
func (s *Store) ExecuteQuery(ctx context.Context, text string) (engine.Cursor, error) {
	rows, err := s.db.QueryContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("query columns: %w", err)
	}
	return &cursor{rows: rows, cols: cols}, nil
}

type cursor struct {
	rows *sql.Rows
	cols []string
}

func (c *cursor) Next() bool { return c.rows.Next() }
func (c *cursor) Err() error { return c.rows.Err() }
func (c *cursor) Close() error {
	return c.rows.Close()
}

func (c *cursor) Row() (engine.Row, error) {
	raw := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(engine.Row, len(c.cols))
	for i, name := range c.cols {
		v, err := columnValue(raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		row[name] = v
	}
	return row, nil
}

func columnValue(raw any) (ir.IRValue, error) {
	switch v := raw.(type) {
	case nil:
		return ir.IRNull{}, nil
	case int64:
		return ir.IRInt(v), nil
	case float64:
		return ir.IRFloat(v), nil
	case bool:
		return ir.IRBool(v), nil
	case []byte:
		return textValue(string(v))
	case string:
		return textValue(v)
	}
	return nil, fmt.Errorf("unsupported column type %T", raw)
}

// textValue decodes JSON text for composite values. json_each yields bare
// text for string elements, so anything else stays a string.
func textValue(s string) (ir.IRValue, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return ir.IRString(s), nil
	}
	return ir.UnmarshalIRValue([]byte(trimmed))
}

// IncomingEdges rebuilds the reverse adjacency list of vertexID from the
// forward lists stored inline in other documents. Edges inside spilled
// lists are not visible here.
func (s *Store) IncomingEdges(ctx context.Context, vertexID string) ([]ir.IRObject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.label, e.value
		FROM Node n, json_each(n.doc, '$."_edge"') e
		WHERE json_type(n.doc, '$."_edge"') = 'array'
			AND json_extract(e.value, '$."_sinkV"') = ?
		ORDER BY n.id COLLATE BINARY ASC, e.key ASC
	`, vertexID)
	if err != nil {
		return nil, fmt.Errorf("incoming edges of %s: %w", vertexID, err)
	}
	defer rows.Close()

	var out []ir.IRObject
	for rows.Next() {
		var source, label, data string
		if err := rows.Scan(&source, &label, &data); err != nil {
			return nil, fmt.Errorf("scan incoming edge: %w", err)
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("incoming edge of %s from %s: %w", vertexID, source, err)
		}
		delete(doc, ir.KeySinkV)
		delete(doc, ir.KeySinkVLabel)
		doc[ir.KeySourceV] = ir.IRString(source)
		doc[ir.KeySourceVLabel] = ir.IRString(label)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incoming edges: %w", err)
	}
	return out, nil
}
