package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "lagrum.db" {
		t.Errorf("default database path = %q", cfg.Database.Path)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q", cfg.Log.Level)
	}
	if !cfg.Search.EnableFallback {
		t.Error("fallback should default to enabled")
	}
	if cfg.Store.StrictIntervals {
		t.Error("strict intervals should default to off")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lagrum.yaml")
	data := `
database:
  path: /var/lib/lagrum/sfs.db
log:
  level: debug
  pretty: true
search:
  enable_fallback: false
store:
  strict_intervals: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/lagrum/sfs.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("log config = %+v", cfg.Log)
	}
	if cfg.Search.EnableFallback {
		t.Error("fallback should be disabled")
	}
	if !cfg.Store.StrictIntervals {
		t.Error("strict intervals should be on")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lagrum.yaml")
	if err := os.WriteFile(path, []byte("log:\n  pretty: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "lagrum.db" {
		t.Errorf("database path = %q, want default", cfg.Database.Path)
	}
	if cfg.Log.Level != "info" || !cfg.Log.Pretty {
		t.Errorf("log config = %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/lagrum.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
