package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/store"
	"github.com/roach88/gview/internal/testutil"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Backend BackendFlags
	Fixture string // built-in graph instead of a file
}

// LoadSummary reports what a load wrote.
type LoadSummary struct {
	Vertices      int         `json:"vertices"`
	SpilledLists  int         `json:"spilled_lists"`
	StoreContents store.Stats `json:"store"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [graph.json]",
		Short: "Load vertex documents into the store",
		Long: `Load vertex documents into the SQLite store.

The input is a JSON array of vertex documents, or an object with a
"vertices" array and an optional "spilled" array of adjacency lists kept
outside their vertex:

  {"vertices": [...], "spilled": [{"vertex_id": "4", "reverse": false, "edges": [...]}]}

Spilled lists require --spill-dir. Documents replace any stored vertex
with the same id.

Example:
  gview load --db ./graph.db ./graph.json
  gview load --db ./graph.db --spill-dir ./graph.spill --fixture modern-spilled`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runLoad(opts, path, cmd)
		},
	}

	opts.Backend.register(cmd)
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "load a built-in graph (modern|modern-spilled)")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	graph, err := readGraph(path, opts.Fixture)
	if err != nil {
		return outputCompileError(formatter, ErrCodeDecode, err.Error(), nil)
	}
	if len(graph.Spilled) > 0 && opts.Backend.resolve(opts.Config).SpillDir == "" {
		return outputCompileError(formatter, ErrCodeBackend, "graph has spilled lists but no --spill-dir is set", nil)
	}

	logger := opts.logger(cmd.ErrOrStderr())
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

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := b.store.PutVertices(ctx, graph.Vertices); err != nil {
		return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("storing vertices: %v", err), nil)
	}
	for _, l := range graph.Spilled {
		if err := b.spill.PutEdges(ctx, l.VertexID, l.Reverse, l.Edges); err != nil {
			return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("spilling edges of %s: %v", l.VertexID, err), nil)
		}
	}

	stats, err := b.store.Statistics(ctx)
	if err != nil {
		return outputCompileError(formatter, ErrCodeBackend, fmt.Sprintf("reading statistics: %v", err), nil)
	}
	summary := LoadSummary{Vertices: len(graph.Vertices), SpilledLists: len(graph.Spilled), StoreContents: stats}

	if formatter.JSON() {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d vertices (%d spilled lists)\n", summary.Vertices, summary.SpilledLists)
	fmt.Fprintf(formatter.Writer, "  store: %d vertices, %d edges, %d spilled\n", stats.Vertices, stats.Edges, stats.Spilled)
	return nil
}

// readGraph reads a graph file or resolves a built-in fixture.
func readGraph(path, fixture string) (testutil.Graph, error) {
	switch {
	case fixture != "" && path != "":
		return testutil.Graph{}, fmt.Errorf("a graph file and --fixture are mutually exclusive")
	case fixture != "":
		g, ok := testutil.Fixture(fixture)
		if !ok {
			return testutil.Graph{}, fmt.Errorf("unknown fixture %q", fixture)
		}
		return g, nil
	case path == "":
		return testutil.Graph{}, fmt.Errorf("a graph file or --fixture is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return testutil.Graph{}, fmt.Errorf("reading graph file: %w", err)
	}
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return testutil.Graph{}, fmt.Errorf("parsing graph file: %w", err)
	}
	return decodeGraph(v)
}

// decodeGraph accepts a bare vertex array or a {vertices, spilled} object.
func decodeGraph(v ir.IRValue) (testutil.Graph, error) {
	var g testutil.Graph
	switch v := v.(type) {
	case ir.IRArray:
		docs, err := objects(v, "vertices")
		if err != nil {
			return g, err
		}
		g.Vertices = docs
	case ir.IRObject:
		arr, ok := v["vertices"].(ir.IRArray)
		if !ok {
			return g, fmt.Errorf("vertices: expected an array")
		}
		docs, err := objects(arr, "vertices")
		if err != nil {
			return g, err
		}
		g.Vertices = docs

		if raw, ok := v["spilled"]; ok {
			lists, ok := raw.(ir.IRArray)
			if !ok {
				return g, fmt.Errorf("spilled: expected an array")
			}
			for i, l := range lists {
				list, err := spilledList(l)
				if err != nil {
					return g, fmt.Errorf("spilled[%d]: %w", i, err)
				}
				g.Spilled = append(g.Spilled, list)
			}
		}
	default:
		return g, fmt.Errorf("expected a vertex array or an object with vertices")
	}

	for i, doc := range g.Vertices {
		if _, ok := doc[ir.KeyID].(ir.IRString); !ok {
			return g, fmt.Errorf("vertices[%d]: %s must be a string", i, ir.KeyID)
		}
	}
	return g, nil
}

func spilledList(v ir.IRValue) (testutil.SpilledList, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return testutil.SpilledList{}, fmt.Errorf("expected an object")
	}
	id, ok := obj["vertex_id"].(ir.IRString)
	if !ok {
		return testutil.SpilledList{}, fmt.Errorf("vertex_id must be a string")
	}
	list := testutil.SpilledList{VertexID: string(id)}
	if r, ok := obj["reverse"]; ok {
		b, ok := r.(ir.IRBool)
		if !ok {
			return testutil.SpilledList{}, fmt.Errorf("reverse must be a boolean")
		}
		list.Reverse = bool(b)
	}
	arr, ok := obj["edges"].(ir.IRArray)
	if !ok {
		return testutil.SpilledList{}, fmt.Errorf("edges: expected an array")
	}
	edges, err := objects(arr, "edges")
	if err != nil {
		return testutil.SpilledList{}, err
	}
	list.Edges = edges
	return list, nil
}

func objects(arr ir.IRArray, field string) ([]ir.IRObject, error) {
	out := make([]ir.IRObject, 0, len(arr))
	for i, e := range arr {
		obj, ok := e.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected an object", field, i)
		}
		out = append(out, obj)
	}
	return out, nil
}
