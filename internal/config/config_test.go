package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.Path == "" {
		t.Error("store path not resolved")
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data_dir: /var/lib/fieldgrid
store:
  type: memory
ingest:
  queue_depth: 256
  workers: 2
archive:
  enabled: true
  interval: 30m
  max_age: 168h
  storage:
    type: local
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/fieldgrid" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q", cfg.Store.Type)
	}
	if cfg.Ingest.QueueDepth != 256 || cfg.Ingest.Workers != 2 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Interval != 30*time.Minute {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if cfg.Archive.Storage.Path == "" {
		t.Error("archive storage path not resolved from data_dir")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FIELDGRID_STORE_TYPE", "memory")
	t.Setenv("FIELDGRID_INGEST_WORKERS", "8")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q, want memory", cfg.Store.Type)
	}
	if cfg.Ingest.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Ingest.Workers)
	}
}

func TestValidateRejectsBadStoreType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Type = "cassandra"
	cfg.Resolve()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown store type")
	}
}

func TestValidateRequiresS3Bucket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Archive.Enabled = true
	cfg.Archive.Storage.Type = "s3"
	cfg.Resolve()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing s3 bucket")
	}
}
