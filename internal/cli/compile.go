package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gview/internal/compiler"
	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output    string // output file path
	Dialect   string // overrides the config dialect
	Traversal string // compile only this traversal
}

// CompiledTraversal is the emitted form of one traversal.
type CompiledTraversal struct {
	Name    string          `json:"name"`
	Logical string          `json:"logical"`
	Queries []PlannedOutput `json:"queries"`
}

// PlannedOutput is one planned query: its text, hash and client-side hops.
type PlannedOutput struct {
	Text string      `json:"text"`
	Hash string      `json:"hash"`
	Hops []HopOutput `json:"hops,omitempty"`
}

// HopOutput describes one pattern edge walked after the query.
type HopOutput struct {
	Source       string   `json:"source"`
	Sink         string   `json:"sink,omitempty"`
	Edge         string   `json:"edge"`
	Reverse      bool     `json:"reverse,omitempty"`
	Both         bool     `json:"both,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	CrossApplied bool     `json:"cross_applied,omitempty"`
	Endpoint     string   `json:"endpoint,omitempty"` // bound edge end, for endpoint hops
	SinkQuery    string   `json:"sink_query,omitempty"`
}

// CompilationResult holds every compiled traversal of a source.
// ProtocolVersion is the vertex document protocol the queries read.
type CompilationResult struct {
	Dialect         string              `json:"dialect"`
	ProtocolVersion string              `json:"protocol_version"`
	Traversals      []CompiledTraversal `json:"traversals"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <traversal-source>",
		Short: "Compile traversals to backend queries",
		Long: `Compile CUE traversals to their relational form and to backend query text.

The source is a .cue file or a directory of them. For each traversal the
command prints the rendered relational form and the planned queries for
the target dialect, including the hops the engine walks client-side.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "query dialect (sql|document, default from config)")
	cmd.Flags().StringVarP(&opts.Traversal, "traversal", "t", "", "compile only the named traversal")

	return cmd
}

func runCompile(opts *CompileOptions, source string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dialect, err := resolveDialect(opts.Config, opts.Dialect)
	if err != nil {
		return outputCompileError(formatter, ErrCodeEmit, err.Error(), nil)
	}

	traversals, err := loadSelected(formatter, source, opts.Traversal, LoadModeCollectAll)
	if err != nil {
		return err
	}

	result := &CompilationResult{Dialect: string(dialect), ProtocolVersion: ir.ProtocolVersion}
	for _, nt := range traversals {
		formatter.VerboseLog("Compiling traversal: %s", nt.Name)
		ct, err := emitTraversal(nt, dialect, opts.Config.UseReverseEdges())
		if err != nil {
			return outputCompileError(formatter, ErrCodeEmit, fmt.Sprintf("traversal %s: %v", nt.Name, err), nil)
		}
		result.Traversals = append(result.Traversals, ct)
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// resolveDialect applies a flag override to the configured dialect.
func resolveDialect(cfg Config, flag string) (querysql.Dialect, error) {
	if flag != "" {
		return querysql.ParseDialect(flag)
	}
	return cfg.TargetDialect()
}

// loadSelected loads a traversal source and optionally narrows it to one
// traversal. Load and compile errors are reported through formatter.
func loadSelected(formatter *OutputFormatter, source, name string, mode LoadMode) ([]NamedTraversal, error) {
	loadResult, loadErrors := LoadTraversals(source, mode)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return nil, outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return nil, outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, source)

	if len(loadErrors) > 0 {
		return nil, outputCompileErrors(formatter, loadErrors)
	}

	if name == "" {
		return loadResult.Traversals, nil
	}
	nt, ok := loadResult.Find(name)
	if !ok {
		return nil, outputCompileError(formatter, ErrCodeNotFound, fmt.Sprintf("traversal %q not found in %s", name, source), nil)
	}
	return []NamedTraversal{nt}, nil
}

// emitTraversal renders and plans one compiled traversal.
func emitTraversal(nt NamedTraversal, dialect querysql.Dialect, reverseEdges bool) (CompiledTraversal, error) {
	ct := CompiledTraversal{Name: nt.Name}

	block, err := nt.Context.ToSelectBlock()
	if err != nil {
		return ct, err
	}
	if ct.Logical, err = querysql.Render(block); err != nil {
		return ct, err
	}

	plans, _, err := planTraversal(nt.Context, querysql.PlanOptions{Dialect: dialect, UseReverseEdges: reverseEdges}, nil)
	if err != nil {
		return ct, err
	}
	for _, p := range plans {
		out, err := plannedOutput(p, dialect)
		if err != nil {
			return ct, err
		}
		ct.Queries = append(ct.Queries, out)
	}
	return ct, nil
}

// planTraversal builds the traversal's pattern graph, annotates it with
// stats when given, and plans it.
func planTraversal(c *compiler.Context, opts querysql.PlanOptions, stats *matchgraph.Statistics) ([]querysql.PlannedQuery, *matchgraph.Graph, error) {
	g, err := c.MatchGraph()
	if err != nil {
		return nil, nil, err
	}
	if stats != nil {
		matchgraph.Annotate(g, *stats)
	}
	plans, err := querysql.Plan(g, opts)
	return plans, g, err
}

func plannedOutput(p querysql.PlannedQuery, dialect querysql.Dialect) (PlannedOutput, error) {
	text, err := p.Query.String(dialect)
	if err != nil {
		return PlannedOutput{}, err
	}
	out := PlannedOutput{Text: text, Hash: ir.QueryHash(string(dialect), text)}
	for _, h := range p.Hops {
		hop := HopOutput{
			Source:       h.Source,
			Sink:         h.Sink,
			Edge:         h.Edge.Alias,
			Reverse:      h.Edge.Reverse,
			Both:         h.Edge.Both,
			Labels:       h.Edge.Labels,
			CrossApplied: h.Edge.CrossApplied,
		}
		if h.Endpoint {
			hop.Endpoint = h.End.String()
		}
		if h.SinkQuery != nil {
			if hop.SinkQuery, err = h.SinkQuery.String(dialect); err != nil {
				return PlannedOutput{}, err
			}
		}
		out.Hops = append(out.Hops, hop)
	}
	return out, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d traversal(s) for %s (document protocol v%s)\n\n",
		len(result.Traversals), result.Dialect, result.ProtocolVersion)

	for _, ct := range result.Traversals {
		fmt.Fprintf(w, "%s:\n", ct.Name)
		fmt.Fprintf(w, "  logical:\n")
		fmt.Fprintf(w, "%s\n", indent(ct.Logical, "    "))
		for i, q := range ct.Queries {
			fmt.Fprintf(w, "  query %d [%s]:\n    %s\n", i+1, q.Hash[:12], q.Text)
			for _, h := range q.Hops {
				mode := "expanded"
				switch {
				case h.Endpoint != "":
					mode = "endpoint " + h.Endpoint
				case h.CrossApplied:
					mode = "cross-applied"
				}
				fmt.Fprintf(w, "    hop %s -[%s]-> %s (%s)\n", h.Source, h.Edge, h.Sink, mode)
			}
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled queries to %s\n", outputFile)
	}
	return nil
}

func indent(s, prefix string) string {
	out := prefix
	for _, r := range s {
		out += string(r)
		if r == '\n' {
			out += prefix
		}
	}
	return out
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Failure(cliErrors, cliErrors[0]); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapCompileErrorCode(compileErr.Code), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the compilation result as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
