package config

import (
	"os"
	"testing"
)

func TestResolveDefaultsUnsupportedDriver(t *testing.T) {
	unsetStoreEnv()
	_ = os.Setenv("CHARSTORE_DB_DRIVER", "mongo")
	defer unsetStoreEnv()

	if _, err := New(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestResolveDefaultsPostgresRequiresDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres", MaxUploadBytes: 1}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error when POSTGRES_DSN is empty")
	}
	cfg.PostgresDSN = "postgres://localhost/charstore"
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveDefaultsNormalizesDriver(t *testing.T) {
	cfg := &Config{DBDriver: " SQLite ", SQLitePath: "x.db", MaxUploadBytes: 1}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBDriver != DriverSQLite {
		t.Fatalf("driver not normalized, got %q", cfg.DBDriver)
	}
}

func TestResolveDefaultsRejectsSameFiles(t *testing.T) {
	cfg := &Config{DBDriver: "json", IndexFile: "a.json", DetailsFile: "a.json", MaxUploadBytes: 1}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error when index and details share a path")
	}
}

func TestNewForTesting(t *testing.T) {
	dir := t.TempDir()
	cfg := NewForTesting(dir)
	if !cfg.IsTesting() || cfg.IsProduction() {
		t.Fatalf("unexpected environment %s", cfg.Environment)
	}
	if cfg.LockFile != dir+"/index_file.json.lock" {
		t.Fatalf("unexpected lock file %q", cfg.LockFile)
	}
}
