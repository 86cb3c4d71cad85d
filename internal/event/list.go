package event

import (
	"context"
	"log"

	"github.com/fieldgrid/fieldgrid/internal/codec"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/model"
	"github.com/fieldgrid/fieldgrid/internal/pager"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// ListMeasurements returns the assignment's measurements events in the
// range, newest first.
func (s *Store) ListMeasurements(ctx context.Context, assignmentToken string, r model.DateRange, page pager.Criteria) ([]*model.Measurements, int, error) {
	start, stop, err := s.assignmentBounds(ctx, assignmentToken, r)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.Measurements](ctx, s, start, stop, codec.EventMeasurement, r, page)
}

// ListLocations returns the assignment's location events in the range,
// newest first.
func (s *Store) ListLocations(ctx context.Context, assignmentToken string, r model.DateRange, page pager.Criteria) ([]*model.LocationEvent, int, error) {
	start, stop, err := s.assignmentBounds(ctx, assignmentToken, r)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.LocationEvent](ctx, s, start, stop, codec.EventLocation, r, page)
}

// ListAlerts returns the assignment's alert events in the range, newest
// first.
func (s *Store) ListAlerts(ctx context.Context, assignmentToken string, r model.DateRange, page pager.Criteria) ([]*model.Alert, int, error) {
	start, stop, err := s.assignmentBounds(ctx, assignmentToken, r)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.Alert](ctx, s, start, stop, codec.EventAlert, r, page)
}

// ListMeasurementsForSite returns measurements across every assignment of
// the site. This scans the site's whole assignment sub-range; there is no
// per-assignment narrowing, so cost grows with the site's total event
// volume.
func (s *Store) ListMeasurementsForSite(ctx context.Context, siteToken string, r model.DateRange, page pager.Criteria) ([]*model.Measurements, int, error) {
	start, stop, err := s.siteBounds(ctx, siteToken)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.Measurements](ctx, s, start, stop, codec.EventMeasurement, r, page)
}

// ListLocationsForSite returns location events across every assignment of
// the site.
func (s *Store) ListLocationsForSite(ctx context.Context, siteToken string, r model.DateRange, page pager.Criteria) ([]*model.LocationEvent, int, error) {
	start, stop, err := s.siteBounds(ctx, siteToken)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.LocationEvent](ctx, s, start, stop, codec.EventLocation, r, page)
}

// ListAlertsForSite returns alert events across every assignment of the
// site.
func (s *Store) ListAlertsForSite(ctx context.Context, siteToken string, r model.DateRange, page pager.Criteria) ([]*model.Alert, int, error) {
	start, stop, err := s.siteBounds(ctx, siteToken)
	if err != nil {
		return nil, 0, err
	}
	return listEvents[model.Alert](ctx, s, start, stop, codec.EventAlert, r, page)
}

// assignmentBounds computes the half-open event-key range for one
// assignment. Bucket bytes are bit-inverted, so the range's newest edge is
// the scan start: the End bound selects the first (newest) bucket, the
// Start bound the last (oldest) one. The oldest bucket row itself must be
// included, so the stop key extends it by one zero byte.
func (s *Store) assignmentBounds(ctx context.Context, assignmentToken string, r model.DateRange) (start, stop []byte, err error) {
	assignmentKey, _, err := s.resolveAssignment(ctx, assignmentToken)
	if err != nil {
		return nil, nil, err
	}
	if r.End != nil {
		start = codec.EventRowKey(assignmentKey, *r.End)
	} else {
		start = codec.EventAbsoluteStartKey(assignmentKey)
	}
	if r.Start != nil {
		stop = append(codec.EventRowKey(assignmentKey, *r.Start), 0x00)
	} else {
		stop = codec.EventAbsoluteEndKey(assignmentKey)
	}
	return start, stop, nil
}

// siteBounds covers every assignment of a site: event keys begin with the
// 7-byte assignment key, which itself begins with the site's assignment
// prefix. Time filtering happens per cell only.
func (s *Store) siteBounds(ctx context.Context, siteToken string) (start, stop []byte, err error) {
	siteID, ok, err := s.uids.SiteKeys.GetCounterValue(ctx, siteToken)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidSiteToken, "unknown site token")
	}
	return codec.AssignmentPrefix(siteID), codec.AfterAssignmentPrefix(siteID), nil
}

// listEvents scans the key range and collects cells of one event type whose
// decoded time falls inside the range. Key bounds are bucket-granular, so
// the decoded per-cell time is the authoritative filter. Scan order is
// newest-first by construction of the inverted keys.
func listEvents[T any](ctx context.Context, s *Store, start, stop []byte, eventType codec.EventType, r model.DateRange, page pager.Criteria) ([]*T, int, error) {
	scanner, err := s.store.Scan(ctx, store.TableEvents, start, stop)
	if err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "unable to scan events", err)
	}
	defer scanner.Close()

	p := pager.New[*T](page)
	for scanner.Next() {
		row := scanner.Row()
		for _, col := range row.Columns {
			t, ok := codec.EventTypeOf(col.Qualifier)
			if !ok || t != eventType {
				continue
			}
			at, err := codec.DecodeEventTime(row.Key, col.Qualifier)
			if err != nil {
				log.Printf("event: skipping undecodable cell in row % x: %v", row.Key, err)
				continue
			}
			if !r.Contains(at) {
				continue
			}
			var event T
			if err := model.Unmarshal(col.Value, &event); err != nil {
				log.Printf("event: skipping unparsable cell in row % x: %v", row.Key, err)
				continue
			}
			p.Process(&event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "event scan failed", err)
	}
	return p.Results(), p.Total(), nil
}
