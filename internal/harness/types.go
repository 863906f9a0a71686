package harness

import (
	"sort"
	"strings"
)

// Match is one pattern match: alias to element id.
type Match map[string]string

// Aliases returns the bound aliases in sorted order.
func (m Match) Aliases() []string {
	aliases := make([]string, 0, len(m))
	for a := range m {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}

// IDs returns the element ids in alias order.
func (m Match) IDs() []string {
	aliases := m.Aliases()
	ids := make([]string, len(aliases))
	for i, a := range aliases {
		ids[i] = m[a]
	}
	return ids
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Logical is the rendered relational form of the traversal.
	Logical string `json:"logical,omitempty"`

	// Queries are the planned backend query texts in plan order.
	Queries []string `json:"queries"`

	// Matches are the pattern matches the engine produced. Empty for
	// dialects without an executor.
	Matches []Match `json:"matches"`

	// Failure is the compile or execution error, if any.
	Failure string `json:"failure,omitempty"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []string{},
		Matches: []Match{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// SortedMatches returns the matches ordered by their id rows.
func (r *Result) SortedMatches() []Match {
	out := append([]Match(nil), r.Matches...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Join(out[i].IDs(), "\x00") < strings.Join(out[j].IDs(), "\x00")
	})
	return out
}
