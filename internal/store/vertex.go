package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
)

// PutVertex inserts or replaces a vertex document. The document must carry
// a string id; the label column mirrors its label.
//
// Rewriting an identical document is a no-op.
func (s *Store) PutVertex(ctx context.Context, doc ir.IRObject) error {
	return putVertex(ctx, s.db, doc)
}

// PutVertices writes documents in one transaction. Either every document
// is written or none is.
func (s *Store) PutVertices(ctx context.Context, docs []ir.IRObject) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put vertices: %w", err)
	}
	for _, doc := range docs {
		if err := putVertex(ctx, tx, doc); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put vertices: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putVertex(ctx context.Context, db execer, doc ir.IRObject) error {
	id, ok := doc[ir.KeyID].(ir.IRString)
	if !ok || id == "" {
		return fmt.Errorf("put vertex: document has no string %s", ir.KeyID)
	}
	var label string
	if l, ok := doc[ir.KeyLabel].(ir.IRString); ok {
		label = string(l)
	}

	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("put vertex %s: %w", id, err)
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return fmt.Errorf("put vertex %s: %w", id, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO Node (id, label, doc, hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			doc = excluded.doc,
			hash = excluded.hash
		WHERE Node.hash <> excluded.hash
	`, string(id), label, string(data), hash)
	if err != nil {
		return fmt.Errorf("put vertex %s: %w", id, err)
	}
	return nil
}

// Vertex returns the stored document for id. The boolean is false when no
// such vertex exists.
func (s *Store) Vertex(ctx context.Context, id string) (ir.IRObject, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM Node WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read vertex %s: %w", id, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, false, fmt.Errorf("read vertex %s: %w", id, err)
	}
	return doc, true, nil
}

// Stats summarizes the stored graph.
type Stats struct {
	Vertices int `json:"vertices"`
	// Edges counts inline forward edges; spilled lists are not counted.
	Edges   int `json:"edges"`
	Spilled int `json:"spilled"`
}

// Statistics counts vertices, inline forward edges and spilled lists.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN json_type(doc, '$."_edge"') = 'array'
				THEN json_array_length(doc, '$."_edge"') ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN json_type(doc, '$."_edge"') = 'object' THEN 1 ELSE 0 END), 0)
		FROM Node
	`).Scan(&st.Vertices, &st.Edges, &st.Spilled)
	if err != nil {
		return Stats{}, fmt.Errorf("statistics: %w", err)
	}
	return st, nil
}

// GraphStatistics reports the figures matchgraph.Annotate copies onto a
// pattern graph: the Node row count and, per edge label, the mean number of
// inline forward edges per vertex.
func (s *Store) GraphStatistics(ctx context.Context) (matchgraph.Statistics, error) {
	stats := matchgraph.Statistics{
		RowCount:      make(map[string]int64),
		AverageDegree: make(map[string]float64),
	}

	var rows int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Node`).Scan(&rows); err != nil {
		return stats, fmt.Errorf("graph statistics: %w", err)
	}
	stats.RowCount["Node"] = rows
	if rows == 0 {
		return stats, nil
	}

	degrees, err := s.db.QueryContext(ctx, `
		SELECT json_extract(e.value, '$."label"') AS edge_label, COUNT(*)
		FROM Node, json_each(Node.doc, '$."_edge"') AS e
		WHERE json_type(Node.doc, '$."_edge"') = 'array'
		GROUP BY edge_label
	`)
	if err != nil {
		return stats, fmt.Errorf("graph statistics: %w", err)
	}
	defer degrees.Close()

	for degrees.Next() {
		var label sql.NullString
		var count int64
		if err := degrees.Scan(&label, &count); err != nil {
			return stats, fmt.Errorf("graph statistics: %w", err)
		}
		stats.AverageDegree[label.String] = float64(count) / float64(rows)
	}
	if err := degrees.Err(); err != nil {
		return stats, fmt.Errorf("graph statistics: %w", err)
	}
	return stats, nil
}

func decodeDocument(data string) (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, err
	}
	doc, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("document is %T, not an object", v)
	}
	return doc, nil
}
