// Package entity implements CRUD for sites, devices, zones, and device
// assignments on top of the row-key codec, the UID indirection map, the
// ordinal allocator, and the pager.
//
// All mutations are synchronous: the caller blocks until the store
// acknowledges the write and failures surface as errors. Cross-row updates
// (an assignment row plus the device back-reference) are not transactional;
// a failure between the two writes can leave an assignment without its
// device-side marker. Within one row, body and marker columns always travel
// in a single put, so field-level state cannot be torn.
package entity

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/fieldgrid/fieldgrid/internal/alloc"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/store"
	"github.com/fieldgrid/fieldgrid/internal/uid"
)

// Reserved column qualifiers of the persisted layout.
var (
	QualifierJSON              = []byte("json")
	QualifierDeleted           = []byte("deleted")
	QualifierStatus            = []byte("status")
	QualifierAssignment        = []byte("assignment")
	QualifierZoneCounter       = []byte("zonectr")
	QualifierAssignmentCounter = []byte("assnctr")
)

// deletedMarker is the value of the soft-delete column.
var deletedMarker = []byte{0x01}

// Service is the entity store. Construct one per process with NewService and
// share it; it holds no per-request state.
type Service struct {
	store store.Store
	uids  *uid.Manager
	alloc *alloc.Allocator
	now   func() time.Time
}

// NewService creates the entity store over the given backend and key spaces.
func NewService(s store.Store, uids *uid.Manager) *Service {
	return &Service{
		store: s,
		uids:  uids,
		alloc: alloc.New(s, store.TableSites),
		now:   time.Now,
	}
}

// getBody fetches the JSON body column of one row. A missing row returns
// (nil, nil); an existing row must carry exactly one body column.
func (s *Service) getBody(ctx context.Context, table string, key []byte) ([]byte, error) {
	cols, err := s.store.Get(ctx, table, key, QualifierJSON)
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodeGetFailed, "unable to load record", err)
	}
	switch len(cols) {
	case 0:
		return nil, nil
	case 1:
		return cols[0].Value, nil
	}
	return nil, fgerrors.NewCorruptError(fgerrors.CodeUnexpectedColumnCount,
		"expected one body column for record")
}

// encodeCounter renders a counter seed in the store's 8-byte big-endian
// signed counter format.
func encodeCounter(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
