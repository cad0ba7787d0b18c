// Package config loads the YAML configuration file shared by the CLI
// commands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Search   SearchConfig   `yaml:"search"`
	Store    StoreConfig    `yaml:"store"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// SearchConfig controls the search adapter.
type SearchConfig struct {
	// EnableFallback retries with a relaxed OR-of-terms query when the
	// precise phrase query matches nothing.
	EnableFallback bool `yaml:"enable_fallback"`
}

// StoreConfig controls the version store.
type StoreConfig struct {
	// StrictIntervals makes ingestion reject writes that would produce
	// overlapping validity windows.
	StrictIntervals bool `yaml:"strict_intervals"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "lagrum.db"},
		Log:      LogConfig{Level: "info"},
		Search:   SearchConfig{EnableFallback: true},
	}
}

// Load reads a YAML config file, filling unset fields from Default. An
// empty path returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = Default().Database.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = Default().Log.Level
	}
	return cfg, nil
}
