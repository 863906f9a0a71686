package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the matches and queries to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Queries  []string // Planned queries for context
	Matches  []Match  // Matches for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Queries) > 0 {
		fmt.Fprintf(&buf, "\nQueries:\n")
		for i, q := range e.Queries {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, q)
		}
	}
	if len(e.Matches) > 0 {
		fmt.Fprintf(&buf, "\nMatches:\n")
		for i, m := range e.Matches {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatMatch(m))
		}
	}
	return buf.String()
}

func formatMatch(m Match) string {
	parts := make([]string, 0, len(m))
	for _, a := range m.Aliases() {
		parts = append(parts, a+"="+m[a])
	}
	return strings.Join(parts, " ")
}

// assertMatchCount checks the number of matches.
func assertMatchCount(result *Result, assertion Assertion) error {
	if len(result.Matches) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchCount,
		Expected: fmt.Sprintf("%d matches", assertion.Count),
		Actual:   fmt.Sprintf("%d matches", len(result.Matches)),
		Queries:  result.Queries,
		Matches:  result.Matches,
	}
}

// assertMatchContains checks that some match binds every listed alias to
// the listed id. Other aliases of the match are ignored.
func assertMatchContains(result *Result, assertion Assertion) error {
	for _, m := range result.Matches {
		if matchSubset(m, assertion.Match) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertMatchContains,
		Expected: fmt.Sprintf("a match with %s", formatMatch(assertion.Match)),
		Actual:   "not found in matches",
		Queries:  result.Queries,
		Matches:  result.Matches,
	}
}

func matchSubset(actual, expected Match) bool {
	for alias, id := range expected {
		got, ok := actual[alias]
		if !ok || got != id {
			return false
		}
	}
	return true
}

// assertQueryCount checks the number of planned queries.
func assertQueryCount(result *Result, assertion Assertion) error {
	if len(result.Queries) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryCount,
		Expected: fmt.Sprintf("%d queries", assertion.Count),
		Actual:   fmt.Sprintf("%d queries", len(result.Queries)),
		Queries:  result.Queries,
	}
}

// assertQueryContains checks that some planned query contains the text.
func assertQueryContains(result *Result, assertion Assertion) error {
	for _, q := range result.Queries {
		if strings.Contains(q, assertion.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Expected: fmt.Sprintf("a query containing %q", assertion.Text),
		Actual:   "not found in queries",
		Queries:  result.Queries,
	}
}

func assertLogicalContains(result *Result, assertion Assertion) error {
	if strings.Contains(result.Logical, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogicalContains,
		Expected: fmt.Sprintf("logical form containing %q", assertion.Text),
		Actual:   result.Logical,
	}
}

func assertFailureContains(result *Result, assertion Assertion) error {
	if result.Failure != "" && strings.Contains(result.Failure, assertion.Text) {
		return nil
	}
	actual := result.Failure
	if actual == "" {
		actual = "no failure"
	}
	return &AssertionError{
		Type:     AssertFailureContains,
		Expected: fmt.Sprintf("failure containing %q", assertion.Text),
		Actual:   actual,
	}
}

// assertStoredVertex reads a vertex document back from the store and checks
// the expected properties (subset match).
func assertStoredVertex(ctx context.Context, st *store.Store, assertion Assertion) error {
	doc, ok, err := st.Vertex(ctx, assertion.ID)
	if err != nil {
		return fmt.Errorf("stored_vertex: %w", err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertStoredVertex,
			Expected: fmt.Sprintf("vertex %s", assertion.ID),
			Actual:   "vertex not found",
		}
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want, err := ir.FromGo(assertion.Expect[key])
		if err != nil {
			return fmt.Errorf("stored_vertex: expect[%q]: %w", key, err)
		}
		got, present := doc[key]
		if !present {
			return &AssertionError{
				Type:     AssertStoredVertex,
				Expected: fmt.Sprintf("vertex %s has %s=%s", assertion.ID, key, ir.Text(want)),
				Actual:   fmt.Sprintf("property %s missing", key),
			}
		}
		if !ir.Equal(got, want) {
			return &AssertionError{
				Type:     AssertStoredVertex,
				Expected: fmt.Sprintf("vertex %s has %s=%s", assertion.ID, key, ir.Text(want)),
				Actual:   fmt.Sprintf("%s=%s", key, ir.Text(got)),
			}
		}
	}
	return nil
}

// AssertionContext provides store access for stored_vertex assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMatchCount:
			err = assertMatchCount(result, assertion)
		case AssertMatchContains:
			err = assertMatchContains(result, assertion)
		case AssertQueryCount:
			err = assertQueryCount(result, assertion)
		case AssertQueryContains:
			err = assertQueryContains(result, assertion)
		case AssertLogicalContains:
			err = assertLogicalContains(result, assertion)
		case AssertFailureContains:
			err = assertFailureContains(result, assertion)
		case AssertStoredVertex:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_vertex requires store context", i)
			} else {
				err = assertStoredVertex(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
