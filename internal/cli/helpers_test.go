package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	traversalsDir = filepath.Join("testdata", "traversals")
	invalidDir    = filepath.Join("testdata", "invalid")
	scenariosDir  = filepath.Join("testdata", "scenarios")
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// loadedBackend loads the named fixture into a fresh database and spill
// directory and returns their paths.
func loadedBackend(t *testing.T, fixture string) (db, spillDir string) {
	t.Helper()
	dir := t.TempDir()
	db = filepath.Join(dir, "graph.db")
	spillDir = filepath.Join(dir, "spill")
	_, stderr, err := execute(t, "load", "--db", db, "--spill-dir", spillDir, "--fixture", fixture)
	require.NoError(t, err, "stderr: %s", stderr)
	return db, spillDir
}
