// Package spill stores adjacency lists that were moved out of their vertex
// documents. A vertex whose list is spilled carries {"_spilled": true} in
// place of the list; the edges live here, keyed by vertex and direction,
// in the order they were written.
package spill

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/gview/internal/ir"
)

// Config configures the spill store.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	InMemory bool

	// Logger receives badger's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// Store is a badger-backed edge store.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the spill store described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent spill store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create spill directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open spill store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a spill store that lives as long as the process.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// listPrefix is e/<f|r>/<hex vertex id>/. Hex keeps ids containing the
// separator from sharing a prefix.
func listPrefix(vertexID string, reverse bool) []byte {
	dir := "f"
	if reverse {
		dir = "r"
	}
	return []byte("e/" + dir + "/" + hex.EncodeToString([]byte(vertexID)) + "/")
}

func edgeKey(prefix []byte, seq int) []byte {
	return append(append([]byte{}, prefix...), fmt.Sprintf("%08d", seq)...)
}

// PutEdges replaces the forward or reverse list of vertexID with edges.
func (s *Store) PutEdges(ctx context.Context, vertexID string, reverse bool, edges []ir.IRObject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := listPrefix(vertexID, reverse)

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		for i, e := range edges {
			data, err := ir.MarshalCanonical(e)
			if err != nil {
				return fmt.Errorf("edge %d: %w", i, err)
			}
			if err := txn.Set(edgeKey(prefix, i), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("spill edges of %s: %w", vertexID, err)
	}
	return nil
}

// Edges returns the spilled forward or reverse list of vertexID. A vertex
// with nothing spilled has no edges.
func (s *Store) Edges(ctx context.Context, vertexID string, reverse bool) ([]ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := listPrefix(vertexID, reverse)

	var out []ir.IRObject
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			v, err := ir.UnmarshalIRValue(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			doc, ok := v.(ir.IRObject)
			if !ok {
				return fmt.Errorf("decode %s: edge is %T, not an object", it.Item().Key(), v)
			}
			out = append(out, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load spilled edges of %s: %w", vertexID, err)
	}
	return out, nil
}
