// Package main implements the fieldgrid binary: a device tracking store
// with a sorted key-value backend, asynchronous event ingest, and an
// optional cold archive daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldgrid/fieldgrid/internal/app"
	"github.com/fieldgrid/fieldgrid/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile  string
		dataDir     string
		storeType   string
		storePath   string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&storeType, "store-type", "", "Backing store type: sqlite, memory")
	flag.StringVar(&storePath, "store-path", "", "Path to the sqlite database file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Fieldgrid - Device Tracking On A Sorted Key-Value Store\n\n")
		fmt.Fprintf(os.Stderr, "Usage: fieldgrid [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fieldgrid --data-dir /data/fieldgrid\n")
		fmt.Fprintf(os.Stderr, "  fieldgrid --store-type memory\n")
		fmt.Fprintf(os.Stderr, "  fieldgrid --config /etc/fieldgrid/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_DATA_DIR              Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_STORE_TYPE            Backing store type (sqlite, memory)\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_STORE_PATH            Path to the sqlite database file\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_INGEST_WORKERS        Event ingest worker count\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_ARCHIVE_ENABLED       Enable the event archive daemon\n")
		fmt.Fprintf(os.Stderr, "  FIELDGRID_ARCHIVE_STORAGE_TYPE  Archive storage type (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("fieldgrid version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig(configFile, dataDir, storeType, storePath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print startup banner
	printBanner(cfg)

	// Create and start the application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, storeType, storePath string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if storeType != "" {
		cfg.Store.Type = storeType
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                      FIELDGRID                            ║")
	log.Printf("║       Device Tracking On A Sorted Key-Value Store         ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  Store:    %s", cfg.Store.Type)
	log.Printf("")
	log.Printf("Event Ingest:")
	log.Printf("  Queue Depth: %d", cfg.Ingest.QueueDepth)
	log.Printf("  Workers:     %d", cfg.Ingest.Workers)

	if cfg.Archive.Enabled {
		log.Printf("Archive Daemon:")
		log.Printf("  Interval: %v", cfg.Archive.Interval)
		log.Printf("  Storage:  %s", cfg.Archive.Storage.Type)
	}

	log.Printf("")
}
