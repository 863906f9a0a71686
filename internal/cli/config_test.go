package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/querysql"
)

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gview.yaml", `
dialect: document
reverse_edges: false
database: ./graph.db
spill_dir: ./graph.spill
log_level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	d, err := cfg.TargetDialect()
	require.NoError(t, err)
	assert.Equal(t, querysql.DialectDocument, d)
	assert.False(t, cfg.UseReverseEdges())
	assert.Equal(t, "./graph.db", cfg.Database)
	assert.Equal(t, "./graph.spill", cfg.SpillDir)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfigEmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gview.yaml", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.UseReverseEdges())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "dialekt: sql\n", "failed to parse config"},
		{"bad yaml", "dialect: [\n", "failed to parse config"},
		{"bad dialect", "dialect: gremlin\n", "invalid config"},
		{"bad log level", "log_level: loud\n", "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "gview.yaml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/gview.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	d, err := cfg.TargetDialect()
	require.NoError(t, err)
	assert.Equal(t, querysql.DialectSQL, d)
	assert.True(t, cfg.UseReverseEdges())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
