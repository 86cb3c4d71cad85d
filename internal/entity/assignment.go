package entity

import (
	"context"
	"log"

	"github.com/fieldgrid/fieldgrid/internal/codec"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/model"
	"github.com/fieldgrid/fieldgrid/internal/pager"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// CreateAssignment binds a device to a site. The assignment row is written
// first, then the device back-reference; a failure between the two leaves an
// assignment without its device-side marker, which integrators must treat as
// a known consistency window.
func (s *Service) CreateAssignment(ctx context.Context, req *model.AssignmentCreateRequest) (*model.Assignment, error) {
	siteID, err := s.resolveSiteToken(ctx, req.SiteToken)
	if err != nil {
		if fgerrors.IsNotFound(err) {
			return nil, fgerrors.NewReferenceError(fgerrors.CodeInvalidSiteToken, "assignment references unknown site")
		}
		return nil, err
	}
	if _, err := s.resolveHardwareID(ctx, req.DeviceHardwareID); err != nil {
		if fgerrors.IsNotFound(err) {
			return nil, fgerrors.NewReferenceError(fgerrors.CodeInvalidHardwareID, "assignment references unknown device")
		}
		return nil, err
	}

	current, err := s.GetCurrentAssignmentToken(ctx, req.DeviceHardwareID)
	if err != nil {
		return nil, err
	}
	if current != "" {
		return nil, fgerrors.NewConflictError(fgerrors.CodeDeviceAlreadyAssigned, "device already has an active assignment")
	}

	assignmentID, err := s.alloc.NextOrdinal(ctx, codec.SiteKey(siteID), QualifierAssignmentCounter)
	if err != nil {
		return nil, err
	}
	rowKey := codec.AssignmentKey(siteID, assignmentID)
	token, err := s.uids.AssignmentKeys.CreateToken(ctx, rowKey)
	if err != nil {
		return nil, err
	}

	assignment := &model.Assignment{
		Token:            token,
		SiteToken:        req.SiteToken,
		DeviceHardwareID: req.DeviceHardwareID,
		AssignmentType:   req.AssignmentType,
		AssetID:          req.AssetID,
		Metadata:         req.Metadata,
		Status:           model.AssignmentActive,
		ActiveDate:       s.now(),
	}
	assignment.MarkCreated(assignment.ActiveDate)

	if err := s.putAssignment(ctx, rowKey, assignment); err != nil {
		return nil, err
	}
	if err := s.SetDeviceAssignment(ctx, req.DeviceHardwareID, token); err != nil {
		return nil, err
	}
	return assignment, nil
}

// GetAssignment loads an assignment by its public token.
func (s *Service) GetAssignment(ctx context.Context, token string) (*model.Assignment, error) {
	rowKey, err := s.resolveAssignmentToken(ctx, token)
	if err != nil {
		return nil, err
	}
	body, err := s.getBody(ctx, store.TableSites, rowKey)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidAssignmentToken, "assignment row missing for token")
	}
	var assignment model.Assignment
	if err := model.Unmarshal(body, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// UpdateAssignmentMetadata replaces the assignment's metadata map.
func (s *Service) UpdateAssignmentMetadata(ctx context.Context, token string, metadata map[string]string) (*model.Assignment, error) {
	assignment, err := s.GetAssignment(ctx, token)
	if err != nil {
		return nil, err
	}
	rowKey, err := s.resolveAssignmentToken(ctx, token)
	if err != nil {
		return nil, err
	}

	assignment.Metadata = metadata
	assignment.MarkUpdated(s.now())
	if err := s.putAssignment(ctx, rowKey, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// UpdateAssignmentStatus transitions the assignment's lifecycle state.
func (s *Service) UpdateAssignmentStatus(ctx context.Context, token string, status model.AssignmentStatus) (*model.Assignment, error) {
	assignment, err := s.GetAssignment(ctx, token)
	if err != nil {
		return nil, err
	}
	rowKey, err := s.resolveAssignmentToken(ctx, token)
	if err != nil {
		return nil, err
	}

	assignment.Status = status
	assignment.MarkUpdated(s.now())
	if err := s.putAssignment(ctx, rowKey, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// EndAssignment releases the assignment. The device back-reference is
// cleared first so the device is immediately assignable again, then the
// assignment row transitions to Released.
func (s *Service) EndAssignment(ctx context.Context, token string) (*model.Assignment, error) {
	assignment, err := s.GetAssignment(ctx, token)
	if err != nil {
		return nil, err
	}
	rowKey, err := s.resolveAssignmentToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.RemoveDeviceAssignment(ctx, assignment.DeviceHardwareID); err != nil {
		return nil, err
	}

	released := s.now()
	assignment.Status = model.AssignmentReleased
	assignment.ReleasedDate = &released
	assignment.MarkUpdated(released)
	if err := s.putAssignment(ctx, rowKey, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// ListAssignmentsForSite scans the assignment sub-range of one site.
func (s *Service) ListAssignmentsForSite(ctx context.Context, siteToken string, page pager.Criteria) ([]*model.Assignment, int, error) {
	siteID, err := s.resolveSiteToken(ctx, siteToken)
	if err != nil {
		return nil, 0, err
	}

	scanner, err := s.store.Scan(ctx, store.TableSites,
		codec.AssignmentPrefix(siteID), codec.AfterAssignmentPrefix(siteID))
	if err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "unable to scan assignments", err)
	}
	defer scanner.Close()

	p := pager.New[*model.Assignment](page)
	for scanner.Next() {
		row := scanner.Row()
		if row.HasColumn(QualifierDeleted) {
			continue
		}
		body := row.Column(QualifierJSON)
		if body == nil {
			continue
		}
		var assignment model.Assignment
		if err := model.Unmarshal(body, &assignment); err != nil {
			log.Printf("entity: skipping unparsable assignment row % x: %v", row.Key, err)
			continue
		}
		p.Process(&assignment)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "assignment scan failed", err)
	}
	return p.Results(), p.Total(), nil
}

// DeleteAssignment removes an assignment, soft by default. A forced delete
// clears the device back-reference before removing the row so no device
// keeps pointing at a vanished assignment.
func (s *Service) DeleteAssignment(ctx context.Context, token string, force bool) error {
	assignment, err := s.GetAssignment(ctx, token)
	if err != nil {
		return err
	}
	rowKey, err := s.resolveAssignmentToken(ctx, token)
	if err != nil {
		return err
	}

	if force {
		current, err := s.GetCurrentAssignmentToken(ctx, assignment.DeviceHardwareID)
		if err != nil && !fgerrors.IsNotFound(err) {
			return err
		}
		if current == token {
			if err := s.RemoveDeviceAssignment(ctx, assignment.DeviceHardwareID); err != nil {
				return err
			}
		}
		if err := s.store.Delete(ctx, store.TableSites, rowKey); err != nil {
			return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed, "unable to delete assignment row", err)
		}
		return s.uids.AssignmentKeys.Delete(ctx, token)
	}

	assignment.Deleted = true
	assignment.MarkUpdated(s.now())
	body, err := model.Marshal(assignment)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierStatus, Value: []byte(assignment.Status)},
		store.Column{Qualifier: QualifierDeleted, Value: deletedMarker},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to mark assignment deleted", err)
	}
	return nil
}

// putAssignment writes the assignment body together with its denormalized
// status column in one atomic put.
func (s *Service) putAssignment(ctx context.Context, rowKey []byte, assignment *model.Assignment) error {
	body, err := model.Marshal(assignment)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierStatus, Value: []byte(assignment.Status)},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to write assignment", err)
	}
	return nil
}

// resolveAssignmentToken maps an assignment token to its full row key.
func (s *Service) resolveAssignmentToken(ctx context.Context, token string) ([]byte, error) {
	rowKey, err := s.uids.AssignmentKeys.GetValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if rowKey == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidAssignmentToken, "unknown assignment token")
	}
	return rowKey, nil
}
