package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/gview/internal/compiler"
	"github.com/roach88/gview/internal/engine"
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/querysql"
	"github.com/roach88/gview/internal/spill"
	"github.com/roach88/gview/internal/store"
	"github.com/roach88/gview/internal/testutil"
)

// Harness holds the per-scenario resources. Every scenario gets a fresh
// in-memory store and spill store.
type Harness struct {
	store  *store.Store
	spill  *spill.Store
	logger *slog.Logger
}

// Option configures a harness run.
type Option func(*Harness)

// WithLogger routes engine logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the fixture or inline vertices into a fresh store
//  2. Load spilled adjacency lists into a fresh spill store
//  3. Compile the traversal and render its relational form
//  4. Plan the backend queries for the target dialect
//  5. Execute the plan (sql dialect only) and collect matches
//  6. Evaluate assertions
//
// Compile and execution failures are recorded in Result.Failure so that
// failure_contains assertions can check them. Setup failures are returned.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	h.store = st

	sp, err := spill.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open spill store: %w", err)
	}
	defer sp.Close()
	h.spill = sp

	if err := h.load(ctx, scenario); err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		result.Failure = err.Error()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{Ctx: ctx, Store: st}) {
		result.AddError(msg)
	}
	if result.Failure != "" && !expectsFailure(scenario.Assertions) {
		result.AddError(fmt.Sprintf("scenario failed: %s", result.Failure))
	}
	return result, nil
}

// Graph returns the graph a scenario runs against.
func (s *Scenario) Graph() (testutil.Graph, error) {
	if s.Fixture != "" {
		g, ok := testutil.Fixture(s.Fixture)
		if !ok {
			return testutil.Graph{}, fmt.Errorf("unknown fixture %q", s.Fixture)
		}
		return g, nil
	}
	var g testutil.Graph
	for i, v := range s.Vertices {
		doc, err := ir.FromGo(v)
		if err != nil {
			return testutil.Graph{}, fmt.Errorf("vertices[%d]: %w", i, err)
		}
		g.Vertices = append(g.Vertices, doc.(ir.IRObject))
	}
	return g, nil
}

func (h *Harness) load(ctx context.Context, scenario *Scenario) error {
	g, err := scenario.Graph()
	if err != nil {
		return err
	}
	if err := h.store.PutVertices(ctx, g.Vertices); err != nil {
		return fmt.Errorf("failed to load vertices: %w", err)
	}
	for _, list := range g.Spilled {
		if err := h.spill.PutEdges(ctx, list.VertexID, list.Reverse, list.Edges); err != nil {
			return fmt.Errorf("failed to load spilled edges of %s: %w", list.VertexID, err)
		}
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	dialect, err := scenario.TargetDialect()
	if err != nil {
		return err
	}

	c, err := CompileSource(scenario.Traversal)
	if err != nil {
		return err
	}

	block, err := c.ToSelectBlock()
	if err != nil {
		return err
	}
	logical, err := querysql.Render(block)
	if err != nil {
		return err
	}
	result.Logical = logical

	conn := engine.NewConnection(h.store,
		engine.WithDialect(dialect),
		engine.WithReverseEdges(scenario.UseReverseEdges()),
		engine.WithLogger(h.logger),
		engine.WithSpillSource(h.spill),
		engine.WithIncomingSource(h.store),
		engine.WithIDGenerator(testutil.NewFixedSessionGenerator(scenario.Name)),
	)

	g, err := c.MatchGraph()
	if err != nil {
		return err
	}
	plans, err := querysql.Plan(g, conn.PlanOptions())
	if err != nil {
		return err
	}
	for _, p := range plans {
		text, err := p.Query.String(dialect)
		if err != nil {
			return err
		}
		result.Queries = append(result.Queries, text)
	}

	if dialect != querysql.DialectSQL {
		return nil
	}
	for _, p := range plans {
		matches, err := conn.Walk(ctx, p)
		if err != nil {
			return err
		}
		for _, m := range matches {
			result.Matches = append(result.Matches, toMatch(m))
		}
	}
	return nil
}

// CompileSource compiles CUE traversal source with a top-level steps list.
func CompileSource(src string) (*compiler.Context, error) {
	v := cuecontext.New().CompileString(src)
	t, err := compiler.CompileTraversal(v)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(t)
}

func toMatch(m engine.Match) Match {
	out := make(Match, len(m))
	for alias, f := range m {
		switch f := f.(type) {
		case *engine.VertexField:
			out[alias] = f.ID
		case *engine.EdgeField:
			out[alias] = f.ID
		}
	}
	return out
}

func expectsFailure(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertFailureContains {
			return true
		}
	}
	return false
}
