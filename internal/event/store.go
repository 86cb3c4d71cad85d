// Package event implements append-only ingestion and retrieval of
// time-series device events.
//
// Ingestion is fire-and-forget: Add* calls resolve the assignment token
// synchronously, then hand the encoded cell to a bounded queue serviced by
// worker goroutines and return without waiting for the store write. Write
// failures surface only through the log and the ingest counters, never to
// the submitting caller. That trades per-event durability acknowledgment
// for throughput and is the intended contract, not a fallback.
package event

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fieldgrid/fieldgrid/internal/codec"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/model"
	"github.com/fieldgrid/fieldgrid/internal/observability"
	"github.com/fieldgrid/fieldgrid/internal/store"
	"github.com/fieldgrid/fieldgrid/internal/uid"
)

// Defaults for the ingest pipeline.
const (
	DefaultQueueDepth = 1024
	DefaultWorkers    = 4
)

type writeTask struct {
	rowKey    []byte
	qualifier []byte
	body      []byte
}

// Store is the event store. Construct with NewStore and Close on shutdown;
// Close drains the queue first.
type Store struct {
	store store.Store
	uids  *uid.Manager
	stats *observability.IngestStats

	queue   chan writeTask
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewStore creates the event store with queueDepth slots and the given
// number of writer goroutines. Zero or negative arguments select the
// defaults.
func NewStore(s store.Store, uids *uid.Manager, stats *observability.IngestStats, queueDepth, workers int) *Store {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	es := &Store{
		store: s,
		uids:  uids,
		stats: stats,
		queue: make(chan writeTask, queueDepth),
	}
	for i := 0; i < workers; i++ {
		es.workers.Add(1)
		go es.writeLoop()
	}
	return es
}

func (s *Store) writeLoop() {
	defer s.workers.Done()
	for task := range s.queue {
		err := s.store.Put(context.Background(), store.TableEvents, task.rowKey,
			store.Column{Qualifier: task.qualifier, Value: task.body})
		if err != nil {
			s.stats.RecordFailed()
			log.Printf("event: write failed for row % x: %v", task.rowKey, err)
		} else {
			s.stats.RecordWritten()
		}
		s.pending.Done()
	}
}

// submit enqueues one encoded cell without blocking. A full queue or a
// closed store drops the event.
func (s *Store) submit(task writeTask) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.stats.RecordDropped()
		log.Printf("event: dropping event submitted after close")
		return
	}
	s.pending.Add(1)
	select {
	case s.queue <- task:
		s.mu.Unlock()
		s.stats.RecordSubmitted()
	default:
		s.pending.Done()
		s.mu.Unlock()
		s.stats.RecordDropped()
		log.Printf("event: ingest queue full, dropping event for row % x", task.rowKey)
	}
}

// Flush blocks until every event submitted before the call has been written
// or failed. Events submitted concurrently with Flush are not covered.
func (s *Store) Flush() {
	s.pending.Wait()
}

// Close drains the queue and stops the workers. Add* calls after Close drop
// their events.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.queue)
	s.workers.Wait()
}

// AddMeasurements submits a measurements event for the assignment. The
// token resolves synchronously; the store write is asynchronous.
func (s *Store) AddMeasurements(ctx context.Context, assignmentToken string, req *model.MeasurementsCreateRequest) (*model.Measurements, error) {
	assignmentKey, siteToken, err := s.resolveAssignment(ctx, assignmentToken)
	if err != nil {
		return nil, err
	}
	event := &model.Measurements{
		EventBase: s.eventBase(siteToken, assignmentToken, req.EventDate),
		Entries:   req.Entries,
	}
	if err := s.encodeAndSubmit(assignmentKey, codec.EventMeasurement, event.EventDate, event); err != nil {
		return nil, err
	}
	return event, nil
}

// AddLocation submits a location event for the assignment.
func (s *Store) AddLocation(ctx context.Context, assignmentToken string, req *model.LocationCreateRequest) (*model.LocationEvent, error) {
	assignmentKey, siteToken, err := s.resolveAssignment(ctx, assignmentToken)
	if err != nil {
		return nil, err
	}
	event := &model.LocationEvent{
		EventBase: s.eventBase(siteToken, assignmentToken, req.EventDate),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Elevation: req.Elevation,
	}
	if err := s.encodeAndSubmit(assignmentKey, codec.EventLocation, event.EventDate, event); err != nil {
		return nil, err
	}
	return event, nil
}

// AddAlert submits an alert event for the assignment.
func (s *Store) AddAlert(ctx context.Context, assignmentToken string, req *model.AlertCreateRequest) (*model.Alert, error) {
	assignmentKey, siteToken, err := s.resolveAssignment(ctx, assignmentToken)
	if err != nil {
		return nil, err
	}
	event := &model.Alert{
		EventBase: s.eventBase(siteToken, assignmentToken, req.EventDate),
		Source:    model.AlertSourceDevice,
		Type:      req.Type,
		Message:   req.Message,
	}
	if err := s.encodeAndSubmit(assignmentKey, codec.EventAlert, event.EventDate, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Store) eventBase(siteToken, assignmentToken string, eventDate time.Time) model.EventBase {
	now := time.Now().UTC()
	if eventDate.IsZero() {
		eventDate = now
	}
	return model.EventBase{
		SiteToken:       siteToken,
		AssignmentToken: assignmentToken,
		EventDate:       eventDate.UTC(),
		ReceivedDate:    now,
	}
}

func (s *Store) encodeAndSubmit(assignmentKey []byte, eventType codec.EventType, eventDate time.Time, event any) error {
	body, err := model.Marshal(event)
	if err != nil {
		return err
	}
	s.submit(writeTask{
		rowKey:    codec.EventRowKey(assignmentKey, eventDate),
		qualifier: codec.EventQualifier(eventType, eventDate),
		body:      body,
	})
	return nil
}

// resolveAssignment maps an assignment token to its row key and owning site
// token. The site token comes from the reverse site mapping keyed by the
// leading site-id bytes of the assignment key.
func (s *Store) resolveAssignment(ctx context.Context, token string) ([]byte, string, error) {
	assignmentKey, err := s.uids.AssignmentKeys.GetValue(ctx, token)
	if err != nil {
		return nil, "", err
	}
	if assignmentKey == nil {
		return nil, "", fgerrors.NewNotFoundError(fgerrors.CodeInvalidAssignmentToken, "unknown assignment token")
	}

	siteID := uint64(assignmentKey[0])<<8 | uint64(assignmentKey[1])
	siteToken, err := s.uids.SiteKeys.GetName(ctx, uid.EncodeCounterValue(siteID))
	if err != nil {
		return nil, "", err
	}
	return assignmentKey, siteToken, nil
}
