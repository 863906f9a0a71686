package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gview/internal/ir"
)

// MatchSnapshot captures the deterministic part of a scenario run.
// Query texts are left out: alias numbering and clause layout are covered
// by query_contains assertions instead.
type MatchSnapshot struct {
	ScenarioName string
	Dialect      string
	QueryCount   int
	Matches      []Match
}

// toIR converts the snapshot for canonical JSON serialization. Each match
// becomes its id row in alias order; rows are sorted.
func (s *MatchSnapshot) toIR() ir.IRObject {
	rows := make(ir.IRArray, 0, len(s.Matches))
	for _, m := range (&Result{Matches: s.Matches}).SortedMatches() {
		row := make(ir.IRArray, 0, len(m))
		for _, id := range m.IDs() {
			row = append(row, ir.IRString(id))
		}
		rows = append(rows, row)
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"dialect":       ir.IRString(s.Dialect),
		"query_count":   ir.IRInt(s.QueryCount),
		"matches":       rows,
	}
}

// RunWithGolden executes a scenario and compares its matches against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

// Snapshot returns the golden file bytes for a scenario run: canonical JSON
// of its MatchSnapshot followed by a newline.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	dialect, err := scenario.TargetDialect()
	if err != nil {
		return nil, err
	}
	snapshot := MatchSnapshot{
		ScenarioName: scenario.Name,
		Dialect:      string(dialect),
		QueryCount:   len(result.Queries),
		Matches:      result.Matches,
	}
	data, err := ir.MarshalCanonical(snapshot.toIR())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
