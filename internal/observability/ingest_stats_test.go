package observability

import (
	"sync"
	"testing"
)

func TestIngestStatsCounts(t *testing.T) {
	stats := NewIngestStats()
	stats.RecordSubmitted()
	stats.RecordSubmitted()
	stats.RecordWritten()
	stats.RecordFailed()
	stats.RecordDropped()

	snap := stats.Snapshot()
	if snap.Submitted != 2 || snap.Written != 1 || snap.Failed != 1 || snap.Dropped != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.TakenAt.IsZero() {
		t.Error("snapshot timestamp not set")
	}
}

func TestIngestStatsConcurrent(t *testing.T) {
	stats := NewIngestStats()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.RecordSubmitted()
				stats.RecordWritten()
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.Submitted != 3200 || snap.Written != 3200 {
		t.Errorf("snapshot = %+v, want 3200/3200", snap)
	}
}
