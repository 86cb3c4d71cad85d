// Package config provides unified configuration for the fieldgrid service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Store configuration
	Store StoreConfig `json:"store" yaml:"store"`

	// Ingest configuration for the asynchronous event pipeline
	Ingest IngestConfig `json:"ingest" yaml:"ingest"`

	// Archive configuration for the event export daemon
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// StoreConfig selects and configures the wide-column backend.
type StoreConfig struct {
	// Type is the backend type: sqlite, memory
	Type string `json:"type" yaml:"type"`

	// Path is the SQLite database path (for sqlite type)
	Path string `json:"path" yaml:"path"`
}

// IngestConfig holds event pipeline configuration.
type IngestConfig struct {
	// QueueDepth is the capacity of the ingest queue
	QueueDepth int `json:"queue_depth" yaml:"queue_depth"`

	// Workers is the number of writer goroutines
	Workers int `json:"workers" yaml:"workers"`

	// StatsInterval is how often ingest counters are logged; zero disables
	StatsInterval time.Duration `json:"stats_interval" yaml:"stats_interval"`
}

// ArchiveConfig holds event archive daemon configuration.
type ArchiveConfig struct {
	// Enabled controls whether the archive daemon runs
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Interval is the time between archive cycles
	Interval time.Duration `json:"interval" yaml:"interval"`

	// MaxAge is the event age after which cells are exported
	MaxAge time.Duration `json:"max_age" yaml:"max_age"`

	// DeleteAfterUpload removes archived cells from the events table
	DeleteAfterUpload bool `json:"delete_after_upload" yaml:"delete_after_upload"`

	// Storage is the archive destination
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig selects the archive object-storage destination.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 destination configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/fieldgrid",
		Store: StoreConfig{
			Type: "sqlite",
		},
		Ingest: IngestConfig{
			QueueDepth:    1024,
			Workers:       4,
			StatsInterval: time.Minute,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: time.Hour,
			MaxAge:   30 * 24 * time.Hour,
			Storage: StorageConfig{
				Type: "local",
			},
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/fieldgrid"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "fieldgrid.db")
	}
	if c.Archive.Storage.Path == "" {
		c.Archive.Storage.Path = filepath.Join(c.DataDir, "archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Store.Type != "sqlite" && c.Store.Type != "memory" {
		return fmt.Errorf("invalid store type: %s (must be sqlite or memory)", c.Store.Type)
	}

	if c.Ingest.QueueDepth < 0 {
		return fmt.Errorf("ingest.queue_depth must not be negative, got %d", c.Ingest.QueueDepth)
	}
	if c.Ingest.Workers < 0 {
		return fmt.Errorf("ingest.workers must not be negative, got %d", c.Ingest.Workers)
	}

	if c.Archive.Enabled {
		if c.Archive.Interval <= 0 {
			return fmt.Errorf("archive.interval must be positive when archiving is enabled")
		}
		if c.Archive.MaxAge <= 0 {
			return fmt.Errorf("archive.max_age must be positive when archiving is enabled")
		}
		if c.Archive.Storage.Type != "local" && c.Archive.Storage.Type != "s3" {
			return fmt.Errorf("invalid archive storage type: %s (must be local or s3)", c.Archive.Storage.Type)
		}
		if c.Archive.Storage.Type == "s3" && c.Archive.Storage.S3.Bucket == "" {
			return fmt.Errorf("archive.storage.s3.bucket is required when storage type is s3")
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overrides configuration from environment variables.
// Variables use the FIELDGRID_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FIELDGRID_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FIELDGRID_STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("FIELDGRID_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FIELDGRID_INGEST_QUEUE_DEPTH"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.QueueDepth)
	}
	if v := os.Getenv("FIELDGRID_INGEST_WORKERS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.Workers)
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Archive.Interval = d
		}
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Archive.MaxAge = d
		}
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_STORAGE_TYPE"); v != "" {
		cfg.Archive.Storage.Type = v
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.Storage.S3.Bucket = v
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.Storage.S3.Region = v
	}
	if v := os.Getenv("FIELDGRID_ARCHIVE_S3_ENDPOINT"); v != "" {
		cfg.Archive.Storage.S3.Endpoint = v
	}
}

// Load reads the optional config file, applies environment overrides, and
// resolves paths.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	LoadFromEnv(cfg)
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
