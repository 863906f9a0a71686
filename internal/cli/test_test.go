package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markoGolden = `{"dialect":"sql","matches":[["7","1","2"],["8","1","4"]],"query_count":1,"scenario_name":"marko_knows"}` + "\n"

// copyScenario copies a testdata scenario into dir.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	return writeFile(t, dir, name+".yaml", string(data))
}

func TestTestCommandPasses(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ marko_knows")
	assert.Contains(t, stdout, "✓ time_limit")
	assert.Contains(t, stdout, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
}

func TestTestCommandFilter(t *testing.T) {
	stdout, _, err := execute(t, "test", "--filter", "marko_*", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, stdout, "time_limit")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "marko_knows")
	writeFile(t, dir, filepath.Join("golden", "marko_knows.golden"), `{"matches":[]}`+"\n")

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ marko_knows")
	assert.Contains(t, stdout, "do not equal golden file")
}

func TestTestCommandUpdate(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "marko_knows")

	_, _, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "golden", "marko_knows.golden"))
	require.NoError(t, err)
	assert.Equal(t, markoGolden, string(data))

	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_count.yaml", `
name: wrong_count
description: "Expects the wrong number of matches"
fixture: modern
traversal: |
  steps: [{op: "V"}, {op: "hasLabel", values: ["software"]}]
assertions:
  - type: match_count
    count: 5
`)

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong_count")
	assert.Contains(t, stdout, "Expected: 5 matches")
	assert.Contains(t, stdout, "0 passed, 1 failed, 1 total")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "")
	writeFile(t, dir, "b.yml", "")
	writeFile(t, dir, "c.txt", "")
	writeFile(t, dir, filepath.Join("golden", "d.yaml"), "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml")))
}
