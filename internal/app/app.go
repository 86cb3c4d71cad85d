// Package app wires the fieldgrid components together and manages their
// lifecycle. Every dependency is constructed explicitly here and passed by
// reference; there is no global state.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fieldgrid/fieldgrid/internal/archive"
	"github.com/fieldgrid/fieldgrid/internal/config"
	"github.com/fieldgrid/fieldgrid/internal/entity"
	"github.com/fieldgrid/fieldgrid/internal/event"
	"github.com/fieldgrid/fieldgrid/internal/observability"
	"github.com/fieldgrid/fieldgrid/internal/store"
	"github.com/fieldgrid/fieldgrid/internal/uid"
)

// App owns every fieldgrid component and their startup/shutdown order.
type App struct {
	cfg *config.Config

	store    store.Store
	uids     *uid.Manager
	entities *entity.Service
	events   *event.Store
	stats    *observability.IngestStats
	archiver *archive.Archiver

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &App{cfg: cfg}, nil
}

// Start opens the store, warms the UID caches, and starts the background
// components.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.openStore(ctx); err != nil {
		a.cleanup()
		return err
	}

	a.uids = uid.NewManager(a.store)
	if err := a.uids.Refresh(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to warm uid caches: %w", err)
	}

	a.entities = entity.NewService(a.store, a.uids)
	a.stats = observability.NewIngestStats()
	a.events = event.NewStore(a.store, a.uids, a.stats,
		a.cfg.Ingest.QueueDepth, a.cfg.Ingest.Workers)

	if a.cfg.Ingest.StatsInterval > 0 {
		a.wg.Add(1)
		go a.logStats(ctx, a.cfg.Ingest.StatsInterval)
	}

	if a.cfg.Archive.Enabled {
		if err := a.startArchiver(ctx); err != nil {
			a.cleanup()
			return err
		}
	}

	log.Printf("fieldgrid started with %s store at %s", a.cfg.Store.Type, a.cfg.Store.Path)
	return nil
}

// Stop shuts the components down in reverse dependency order. The event
// queue is drained before the store closes.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.cancel()
	a.wg.Wait()

	if a.archiver != nil {
		if err := a.archiver.Stop(); err != nil {
			log.Printf("app: archiver stop: %v", err)
		}
	}
	if a.events != nil {
		a.events.Flush()
		a.events.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("app: store close: %v", err)
		}
	}
	a.running = false
	log.Printf("fieldgrid stopped")
	return nil
}

// Entities returns the entity store.
func (a *App) Entities() *entity.Service {
	return a.entities
}

// Events returns the event store.
func (a *App) Events() *event.Store {
	return a.events
}

// Stats returns the ingest statistics tracker.
func (a *App) Stats() *observability.IngestStats {
	return a.stats
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Store.Type {
	case "memory":
		a.store = store.NewMemoryStore()
		return nil
	case "sqlite":
		if err := os.MkdirAll(a.cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := store.NewSQLiteStore(a.cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.store = s
		return nil
	}
	return fmt.Errorf("unknown store type %q", a.cfg.Store.Type)
}

func (a *App) startArchiver(ctx context.Context) error {
	objects, err := a.openArchiveStorage(ctx)
	if err != nil {
		return err
	}
	a.archiver = archive.NewArchiver(archive.Config{
		Interval:          a.cfg.Archive.Interval,
		MaxAge:            a.cfg.Archive.MaxAge,
		DeleteAfterUpload: a.cfg.Archive.DeleteAfterUpload,
		PathPrefix:        "events",
	}, a.store, objects)
	return a.archiver.Start(ctx)
}

func (a *App) openArchiveStorage(ctx context.Context) (archive.ObjectStorage, error) {
	cfg := a.cfg.Archive.Storage
	switch cfg.Type {
	case "local":
		return archive.NewLocalStorage(cfg.Path)
	case "s3":
		return archive.NewS3Storage(ctx, cfg.S3.Bucket, archive.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	}
	return nil, fmt.Errorf("unknown archive storage type %q", cfg.Type)
}

func (a *App) logStats(ctx context.Context, interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := a.stats.Snapshot()
			log.Printf("ingest: submitted=%d written=%d failed=%d dropped=%d",
				snap.Submitted, snap.Written, snap.Failed, snap.Dropped)
		}
	}
}

func (a *App) cleanup() {
	a.cancel()
	a.wg.Wait()
	if a.archiver != nil {
		a.archiver.Stop()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}
