package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.Logical = "SELECT N_0.* AS N_0\nFROM Node AS N_0\nWHERE N_0.name = 'marko'"
	r.Queries = []string{"SELECT N_0.doc AS N_0 FROM Node N_0"}
	r.Matches = []Match{
		{"N_0": "1", "E_1": "7", "N_2": "2"},
		{"N_0": "1", "E_1": "8", "N_2": "4"},
	}
	return r
}

func TestAssertMatchCount(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertMatchCount(r, Assertion{Type: AssertMatchCount, Count: 2}))

	err := assertMatchCount(r, Assertion{Type: AssertMatchCount, Count: 1})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "1 matches", ae.Expected)
	assert.Equal(t, "2 matches", ae.Actual)
}

func TestAssertMatchContains_SubsetMatch(t *testing.T) {
	r := sampleResult()
	tests := []struct {
		name  string
		match Match
		pass  bool
	}{
		{"full match", Match{"N_0": "1", "E_1": "8", "N_2": "4"}, true},
		{"subset", Match{"N_2": "2"}, true},
		{"mixed rows", Match{"E_1": "7", "N_2": "4"}, false},
		{"unknown alias", Match{"N_9": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertMatchContains(r, Assertion{Type: AssertMatchContains, Match: tt.match})
			if tt.pass {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertQueryAssertions(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertQueryCount(r, Assertion{Count: 1}))
	assert.Error(t, assertQueryCount(r, Assertion{Count: 2}))
	assert.NoError(t, assertQueryContains(r, Assertion{Text: "FROM Node N_0"}))
	assert.Error(t, assertQueryContains(r, Assertion{Text: "json_each"}))
	assert.NoError(t, assertLogicalContains(r, Assertion{Text: "N_0.name = 'marko'"}))
	assert.Error(t, assertLogicalContains(r, Assertion{Text: "MATCH"}))
}

func TestAssertFailureContains(t *testing.T) {
	r := sampleResult()
	err := assertFailureContains(r, Assertion{Text: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: no failure")

	r.Failure = "steps: step boom() is not implemented"
	assert.NoError(t, assertFailureContains(r, Assertion{Text: "boom"}))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.PutVertex(context.Background(), ir.IRObject{
		ir.KeyID:    ir.IRString("1"),
		ir.KeyLabel: ir.IRString("person"),
		"name":      ir.IRString("marko"),
		"age":       ir.IRInt(29),
	}))
	return st
}

func TestAssertStoredVertex(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		expect  map[string]any
		wantErr string
	}{
		{"subset match", "1", map[string]any{"name": "marko"}, ""},
		{"all listed", "1", map[string]any{"name": "marko", "age": 29}, ""},
		{"empty expect", "1", nil, ""},
		{"value mismatch", "1", map[string]any{"age": 30}, "age=29"},
		{"missing property", "1", map[string]any{"lang": "java"}, "property lang missing"},
		{"missing vertex", "9", map[string]any{"name": "x"}, "vertex not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertStoredVertex(ctx, st, Assertion{Type: AssertStoredVertex, ID: tt.id, Expect: tt.expect})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertMatchCount, Count: 2},
		{Type: AssertQueryCount, Count: 5},
		{Type: "trace_order"},
		{Type: AssertStoredVertex, ID: "1"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Assertion failed: query_count")
	assert.Contains(t, errs[1], `unknown assertion type "trace_order"`)
	assert.Contains(t, errs[2], "stored_vertex requires store context")
}

func TestEvaluateAssertions_WithStore(t *testing.T) {
	st := setupTestStore(t)
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStoredVertex, ID: "1", Expect: map[string]any{"name": "marko"}},
	}, &AssertionContext{Ctx: context.Background(), Store: st})
	assert.Empty(t, errs)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertMatchCount,
		Expected: "3 matches",
		Actual:   "1 matches",
		Queries:  []string{"SELECT N_0.doc AS N_0 FROM Node N_0"},
		Matches:  []Match{{"N_0": "1", "E_1": "7"}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: match_count")
	assert.Contains(t, msg, "Expected: 3 matches")
	assert.Contains(t, msg, "Actual: 1 matches")
	assert.Contains(t, msg, "[1] SELECT N_0.doc AS N_0 FROM Node N_0")
	assert.Contains(t, msg, "[1] E_1=7 N_0=1")
}
