// Package observability provides ingest statistics tracking for the
// asynchronous event pipeline.
package observability

import (
	"sync/atomic"
	"time"
)

// IngestStats counts the outcomes of fire-and-forget event submissions.
// Callers never see a write failure directly; these counters are the only
// place failures become visible.
type IngestStats struct {
	submitted atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewIngestStats creates a new ingest statistics tracker.
func NewIngestStats() *IngestStats {
	return &IngestStats{}
}

// RecordSubmitted counts an event accepted into the ingest queue.
func (s *IngestStats) RecordSubmitted() {
	s.submitted.Add(1)
}

// RecordWritten counts an event successfully persisted.
func (s *IngestStats) RecordWritten() {
	s.written.Add(1)
}

// RecordFailed counts an event whose store write failed.
func (s *IngestStats) RecordFailed() {
	s.failed.Add(1)
}

// RecordDropped counts an event rejected because the queue was full or the
// pipeline was shut down.
func (s *IngestStats) RecordDropped() {
	s.dropped.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Submitted int64
	Written   int64
	Failed    int64
	Dropped   int64
	TakenAt   time.Time
}

// Snapshot returns the current counter values. The individual loads are not
// mutually consistent, which is fine for periodic logging.
func (s *IngestStats) Snapshot() Snapshot {
	return Snapshot{
		Submitted: s.submitted.Load(),
		Written:   s.written.Load(),
		Failed:    s.failed.Load(),
		Dropped:   s.dropped.Load(),
		TakenAt:   time.Now(),
	}
}
