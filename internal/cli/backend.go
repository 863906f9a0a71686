package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/gview/internal/engine"
	"github.com/roach88/gview/internal/querysql"
	"github.com/roach88/gview/internal/spill"
	"github.com/roach88/gview/internal/store"
)

// BackendFlags are the storage flags shared by load and run. Empty values
// fall back to the config file.
type BackendFlags struct {
	Database string
	SpillDir string
}

func (f *BackendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite vertex store (default from config)")
	cmd.Flags().StringVar(&f.SpillDir, "spill-dir", "", "badger directory for spilled adjacency lists (default from config)")
}

// resolve merges the flags over cfg.
func (f BackendFlags) resolve(cfg Config) BackendFlags {
	out := f
	if out.Database == "" {
		out.Database = cfg.Database
	}
	if out.SpillDir == "" {
		out.SpillDir = cfg.SpillDir
	}
	return out
}

// backend is an opened vertex store plus its optional spill store.
type backend struct {
	store *store.Store
	spill *spill.Store
}

// openBackend opens the stores named by flags. The spill store is opened
// only when a spill directory is configured.
func openBackend(flags BackendFlags, logger *slog.Logger) (*backend, error) {
	if flags.Database == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: --db or config database is required", ErrCodeBackend))
	}

	logger.Debug("opening vertex store", "path", flags.Database)
	st, err := store.Open(flags.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeBackend+": failed to open database", err)
	}
	b := &backend{store: st}

	if flags.SpillDir != "" {
		logger.Debug("opening spill store", "path", flags.SpillDir)
		sp, err := spill.Open(spill.Config{Path: flags.SpillDir, Logger: logger})
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, ErrCodeBackend+": failed to open spill store", err)
		}
		b.spill = sp
	}
	return b, nil
}

// Close closes both stores.
func (b *backend) Close() error {
	var errs []error
	if b.spill != nil {
		errs = append(errs, b.spill.Close())
	}
	errs = append(errs, b.store.Close())
	return errors.Join(errs...)
}

// connection opens an engine session on the backend. extra options are
// applied last.
func (b *backend) connection(cfg Config, dialect querysql.Dialect, logger *slog.Logger, extra ...engine.ConnectionOption) *engine.Connection {
	opts := []engine.ConnectionOption{
		engine.WithDialect(dialect),
		engine.WithReverseEdges(cfg.UseReverseEdges()),
		engine.WithLogger(logger),
		engine.WithIncomingSource(b.store),
	}
	if b.spill != nil {
		opts = append(opts, engine.WithSpillSource(b.spill))
	}
	opts = append(opts, extra...)
	return engine.NewConnection(b.store, opts...)
}
