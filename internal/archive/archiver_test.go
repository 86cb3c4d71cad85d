package archive

import (
	"context"
	"testing"
	"time"

	"github.com/fieldgrid/fieldgrid/internal/codec"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

func plantEvent(t *testing.T, s store.Store, assignmentKey []byte, at time.Time, body string) {
	t.Helper()
	err := s.Put(context.Background(), store.TableEvents,
		codec.EventRowKey(assignmentKey, at),
		store.Column{
			Qualifier: codec.EventQualifier(codec.EventMeasurement, at),
			Value:     []byte(body),
		})
	if err != nil {
		t.Fatalf("plant event: %v", err)
	}
}

func TestArchiveOnceExportsOnlyAgedCells(t *testing.T) {
	backend := store.NewMemoryStore()
	defer backend.Close()
	objects, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	ctx := context.Background()

	assignmentKey := codec.AssignmentKey(1, 7)
	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	plantEvent(t, backend, assignmentKey, cutoff.Add(-48*time.Hour), `{"v":1}`)
	plantEvent(t, backend, assignmentKey, cutoff.Add(-time.Hour), `{"v":2}`)
	plantEvent(t, backend, assignmentKey, cutoff.Add(time.Hour), `{"v":3}`)

	cfg := DefaultConfig()
	archiver := NewArchiver(cfg, backend, objects)

	count, err := archiver.ArchiveOnce(ctx, cutoff)
	if err != nil {
		t.Fatalf("archive once: %v", err)
	}
	if count != 2 {
		t.Fatalf("archived %d cells, want 2", count)
	}

	paths, err := objects.List(ctx, cfg.PathPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d batch objects, want 1", len(paths))
	}

	data, err := objects.Get(ctx, paths[0])
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	records, err := ReadBatch(data)
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("batch holds %d records, want 2", len(records))
	}
	for _, rec := range records {
		if !rec.EventTime.Before(cutoff) {
			t.Errorf("record at %s not older than cutoff", rec.EventTime)
		}
		if len(rec.Body) == 0 {
			t.Error("record body missing")
		}
	}
}

func TestArchiveOnceDeleteAfterUpload(t *testing.T) {
	backend := store.NewMemoryStore()
	defer backend.Close()
	objects, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	ctx := context.Background()

	assignmentKey := codec.AssignmentKey(1, 7)
	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-time.Hour)
	plantEvent(t, backend, assignmentKey, old, `{"v":1}`)
	plantEvent(t, backend, assignmentKey, cutoff.Add(time.Hour), `{"v":2}`)

	cfg := DefaultConfig()
	cfg.DeleteAfterUpload = true
	archiver := NewArchiver(cfg, backend, objects)

	if _, err := archiver.ArchiveOnce(ctx, cutoff); err != nil {
		t.Fatalf("archive once: %v", err)
	}

	// The aged cell is gone, the recent one survives.
	cols, err := backend.Get(ctx, store.TableEvents,
		codec.EventRowKey(assignmentKey, old),
		codec.EventQualifier(codec.EventMeasurement, old))
	if err != nil {
		t.Fatalf("get aged: %v", err)
	}
	if len(cols) != 0 {
		t.Error("aged cell not deleted after upload")
	}

	recent := cutoff.Add(time.Hour)
	cols, err = backend.Get(ctx, store.TableEvents,
		codec.EventRowKey(assignmentKey, recent),
		codec.EventQualifier(codec.EventMeasurement, recent))
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(cols) != 1 {
		t.Error("recent cell missing")
	}
}

func TestArchiveOnceNothingToArchive(t *testing.T) {
	backend := store.NewMemoryStore()
	defer backend.Close()
	objects, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	ctx := context.Background()

	cfg := DefaultConfig()
	archiver := NewArchiver(cfg, backend, objects)
	count, err := archiver.ArchiveOnce(ctx, time.Now())
	if err != nil {
		t.Fatalf("archive once: %v", err)
	}
	if count != 0 {
		t.Errorf("archived %d cells from empty table", count)
	}

	paths, err := objects.List(ctx, cfg.PathPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("empty run still uploaded %d objects", len(paths))
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	objects, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	ctx := context.Background()

	if err := objects.Put(ctx, "events/batch-1", []byte("payload")); err != nil {
		t.Fatalf("put: %v", err)
	}

	exists, err := objects.Exists(ctx, "events/batch-1")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v; want true", exists, err)
	}

	data, err := objects.Get(ctx, "events/batch-1")
	if err != nil || string(data) != "payload" {
		t.Fatalf("get = %q, %v", data, err)
	}

	if err := objects.Delete(ctx, "events/batch-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := objects.Get(ctx, "events/batch-1"); err != ErrObjectNotFound {
		t.Errorf("get after delete = %v, want ErrObjectNotFound", err)
	}

	// Deleting a missing object is idempotent.
	if err := objects.Delete(ctx, "events/batch-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
