package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gview/internal/querysql"
)

// Config is the optional YAML configuration shared by all commands.
// Command-line flags override it.
//
//	dialect: sql
//	reverse_edges: true
//	database: ./graph.db
//	spill_dir: ./graph.spill
//	log_level: info
type Config struct {
	// Dialect is the default query dialect (sql or document).
	Dialect string `yaml:"dialect"`

	// ReverseEdges says whether vertex documents carry their incoming
	// adjacency lists. Defaults to true.
	ReverseEdges *bool `yaml:"reverse_edges"`

	// Database is the SQLite vertex store path.
	Database string `yaml:"database"`

	// SpillDir is the badger directory holding spilled adjacency lists.
	SpillDir string `yaml:"spill_dir"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{Dialect: string(querysql.DialectSQL), LogLevel: "info"}
}

// LoadConfig reads a YAML config file. Unknown fields are rejected. An
// empty file yields the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := c.TargetDialect(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// TargetDialect resolves the configured dialect.
func (c Config) TargetDialect() (querysql.Dialect, error) {
	if c.Dialect == "" {
		return querysql.DialectSQL, nil
	}
	return querysql.ParseDialect(c.Dialect)
}

// UseReverseEdges reports the effective reverse-adjacency setting.
func (c Config) UseReverseEdges() bool {
	return c.ReverseEdges == nil || *c.ReverseEdges
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
