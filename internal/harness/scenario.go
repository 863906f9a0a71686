package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gview/internal/querysql"
	"github.com/roach88/gview/internal/testutil"
)

// Scenario defines a traversal conformance scenario: a graph, a traversal
// and assertions on what it compiles and matches to.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect is the target query dialect. Defaults to sql.
	Dialect string `yaml:"dialect,omitempty"`

	// ReverseEdges says whether reverse adjacency lists are stored in
	// vertex documents. Defaults to true.
	ReverseEdges *bool `yaml:"reverse_edges,omitempty"`

	// Fixture names a built-in graph ("modern", "modern-spilled").
	Fixture string `yaml:"fixture,omitempty"`

	// Vertices are inline vertex documents, used when Fixture is empty.
	Vertices []map[string]any `yaml:"vertices,omitempty"`

	// Traversal is CUE source with a top-level steps list.
	Traversal string `yaml:"traversal,omitempty"`

	// TraversalFile is a CUE file holding the traversal, relative to the
	// scenario file.
	TraversalFile string `yaml:"traversal_file,omitempty"`

	// Assertions validate the compiled queries and the matches.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a scenario result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "match_count": exactly Count matches
	// - "match_contains": some match binds every alias in Match
	// - "query_count": exactly Count planned queries
	// - "query_contains": some planned query contains Text
	// - "logical_contains": the rendered relational form contains Text
	// - "failure_contains": compilation or execution failed with Text
	// - "stored_vertex": the store holds vertex ID with Expect properties
	Type string `yaml:"type"`

	// Count is the expected number (match_count, query_count).
	Count int `yaml:"count,omitempty"`

	// Text is the expected substring.
	Text string `yaml:"text,omitempty"`

	// Match maps aliases to expected element ids (match_contains).
	Match map[string]string `yaml:"match,omitempty"`

	// ID is the vertex id (stored_vertex).
	ID string `yaml:"id,omitempty"`

	// Expect contains expected property values (stored_vertex).
	// Subset match: only listed properties are compared.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertMatchCount      = "match_count"
	AssertMatchContains   = "match_contains"
	AssertQueryCount      = "query_count"
	AssertQueryContains   = "query_contains"
	AssertLogicalContains = "logical_contains"
	AssertFailureContains = "failure_contains"
	AssertStoredVertex    = "stored_vertex"
)

// UseReverseEdges reports the effective reverse-adjacency setting.
func (s *Scenario) UseReverseEdges() bool {
	return s.ReverseEdges == nil || *s.ReverseEdges
}

// TargetDialect resolves the scenario dialect.
func (s *Scenario) TargetDialect() (querysql.Dialect, error) {
	if s.Dialect == "" {
		return querysql.DialectSQL, nil
	}
	return querysql.ParseDialect(s.Dialect)
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and a traversal_file is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. basePath resolves traversal_file.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.TraversalFile != "" {
		path := scenario.TraversalFile
		if !filepath.IsAbs(path) && basePath != "" {
			path = filepath.Join(basePath, path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: traversal file: %w", err)
		}
		scenario.Traversal = string(src)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Traversal == "" {
		return fmt.Errorf("traversal or traversal_file is required")
	}
	if _, err := s.TargetDialect(); err != nil {
		return err
	}

	switch {
	case s.Fixture != "" && len(s.Vertices) > 0:
		return fmt.Errorf("fixture and vertices are mutually exclusive")
	case s.Fixture != "":
		if _, ok := testutil.Fixture(s.Fixture); !ok {
			return fmt.Errorf("unknown fixture %q", s.Fixture)
		}
	}
	for i, v := range s.Vertices {
		if id, ok := v["id"].(string); !ok || id == "" {
			return fmt.Errorf("vertices[%d]: id is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMatchCount, AssertQueryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertMatchContains:
		if len(a.Match) == 0 {
			return fmt.Errorf("assertions[%d]: match is required for match_contains", index)
		}
	case AssertQueryContains, AssertLogicalContains, AssertFailureContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertStoredVertex:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for stored_vertex", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
