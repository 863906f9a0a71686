package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/gview/internal/engine"
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/querysql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend   BackendFlags
	Traversal string // run only this traversal
	Metrics   bool   // dump engine metrics to stderr afterwards

	// IDGenerator overrides the session id generator (for testing).
	IDGenerator engine.IDGenerator
}

// TraversalMatches holds the decoded matches of one traversal.
type TraversalMatches struct {
	Name    string                  `json:"name"`
	Matches []map[string]ir.IRValue `json:"matches"`
}

// RunResult is the output of a run. In JSON the session id goes in the
// response envelope.
type RunResult struct {
	SessionID  string
	Traversals []TraversalMatches
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <traversal-source>",
		Short: "Run traversals against the vertex store",
		Long: `Compile traversals and execute them against the SQLite vertex store.

Each traversal is planned, executed and walked through one connection, so
vertices decoded by an earlier traversal are served from the connection
cache. Every match binds the pattern aliases to vertices and edges.

Example:
  gview run --db ./graph.db ./traversals
  gview run --db ./graph.db --spill-dir ./graph.spill -t knows ./traversals --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraversals(opts, args[0], cmd)
		},
	}

	opts.Backend.register(cmd)
	cmd.Flags().StringVarP(&opts.Traversal, "traversal", "t", "", "run only the named traversal")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics to stderr after the run")

	return cmd
}

func runTraversals(opts *RunOptions, source string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger(cmd.ErrOrStderr())

	dialect, err := opts.Config.TargetDialect()
	if err != nil {
		return outputCompileError(formatter, ErrCodeConfig, err.Error(), nil)
	}
	if dialect != querysql.DialectSQL {
		return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("the SQLite store executes %s only, not %s", querysql.DialectSQL, dialect), nil)
	}

	traversals, err := loadSelected(formatter, source, opts.Traversal, LoadModeFailFast)
	if err != nil {
		return err
	}
	logger.Info("traversals compiled", "count", len(traversals), "source", source)

	b, err := openBackend(opts.Backend.resolve(opts.Config), logger)
	if err != nil {
		_ = formatter.Error(ErrCodeBackend, err.Error(), nil)
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Error("error closing backend", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var extra []engine.ConnectionOption
	if opts.IDGenerator != nil {
		extra = append(extra, engine.WithIDGenerator(opts.IDGenerator))
	}
	conn := b.connection(opts.Config, dialect, logger, extra...)
	logger.Debug("session opened", "session_id", conn.SessionID())

	stats, err := b.store.GraphStatistics(ctx)
	if err != nil {
		return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("reading statistics: %v", err), nil)
	}

	result := RunResult{SessionID: conn.SessionID()}
	for _, nt := range traversals {
		tm, err := runOne(ctx, conn, nt, &stats)
		if err != nil {
			return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("traversal %s: %v", nt.Name, err), nil)
		}
		result.Traversals = append(result.Traversals, tm)
	}

	if opts.Metrics {
		if err := writeMetrics(cmd.ErrOrStderr(), prometheus.DefaultGatherer); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	return outputRunSuccess(formatter, result)
}

// runOne plans a traversal over the annotated pattern graph and walks every
// planned query on conn.
func runOne(ctx context.Context, conn *engine.Connection, nt NamedTraversal, stats *matchgraph.Statistics) (TraversalMatches, error) {
	ctx, span := otel.Tracer("gview/cli").Start(ctx, "traversal "+nt.Name)
	defer span.End()

	tm := TraversalMatches{Name: nt.Name, Matches: []map[string]ir.IRValue{}}
	plans, g, err := planTraversal(nt.Context, conn.PlanOptions(), stats)
	if err != nil {
		return tm, err
	}
	for _, c := range g.Components {
		for _, n := range c.Nodes() {
			conn.Logger().Debug("pattern node", "traversal", nt.Name, "alias", n.Alias, "estimated_rows", n.EstimatedRows)
		}
	}
	for _, plan := range plans {
		matches, err := conn.Walk(ctx, plan)
		if err != nil {
			return tm, err
		}
		for _, m := range matches {
			values := make(map[string]ir.IRValue, len(m))
			for alias, f := range m {
				values[alias] = f.Value()
			}
			tm.Matches = append(tm.Matches, values)
		}
	}
	span.SetAttributes(attribute.Int("gview.matches", len(tm.Matches)))
	return tm, nil
}

// writeMetrics writes every gathered metric family in the text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "gview_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// outputRunSuccess prints matches as alias=id lines.
func outputRunSuccess(formatter *OutputFormatter, result RunResult) error {
	if formatter.JSON() {
		return formatter.Respond(CLIResponse{
			Status:    "ok",
			Data:      result.Traversals,
			SessionID: result.SessionID,
		})
	}

	w := formatter.Writer
	for _, tm := range result.Traversals {
		fmt.Fprintf(w, "%s: %d match(es)\n", tm.Name, len(tm.Matches))
		for _, m := range tm.Matches {
			fmt.Fprintf(w, "  %s\n", formatMatch(m))
		}
	}
	return nil
}

// formatMatch renders a match as space-separated alias=id pairs in alias
// order. Values without an id are rendered whole.
func formatMatch(m map[string]ir.IRValue) string {
	aliases := make([]string, 0, len(m))
	for a := range m {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	parts := make([]string, 0, len(aliases))
	for _, a := range aliases {
		v := m[a]
		if obj, ok := v.(ir.IRObject); ok {
			if id, ok := obj[ir.KeyID]; ok {
				v = id
			}
		}
		parts = append(parts, a+"="+ir.Text(v))
	}
	return strings.Join(parts, " ")
}
