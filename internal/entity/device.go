package entity

import (
	"context"
	"log"

	"github.com/fieldgrid/fieldgrid/internal/codec"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/model"
	"github.com/fieldgrid/fieldgrid/internal/pager"
	"github.com/fieldgrid/fieldgrid/internal/store"
	"github.com/fieldgrid/fieldgrid/internal/uid"
)

// CreateDevice registers a device under its caller-supplied hardware id. The
// hardware id doubles as the public token; a second create with the same id
// fails before any row is written.
func (s *Service) CreateDevice(ctx context.Context, req *model.DeviceCreateRequest) (*model.Device, error) {
	if req.HardwareID == nil || *req.HardwareID == "" {
		return nil, fgerrors.NewReferenceError(fgerrors.CodeInvalidHardwareID, "hardware id is required")
	}
	hardwareID := *req.HardwareID

	_, exists, err := s.uids.DeviceKeys.GetCounterValue(ctx, hardwareID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fgerrors.NewConflictError(fgerrors.CodeDuplicateToken, "hardware id already registered")
	}

	deviceID, err := s.uids.DeviceKeys.NextCounterValue(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.uids.DeviceKeys.Create(ctx, hardwareID, uid.EncodeCounterValue(deviceID)); err != nil {
		return nil, err
	}

	device := &model.Device{HardwareID: hardwareID}
	req.Apply(device)
	device.MarkCreated(s.now())

	body, err := model.Marshal(device)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableDevices, codec.DeviceKey(deviceID),
		store.Column{Qualifier: QualifierJSON, Value: body})
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to create device", err)
	}
	return device, nil
}

// GetDeviceByHardwareID loads a device by its hardware id.
func (s *Service) GetDeviceByHardwareID(ctx context.Context, hardwareID string) (*model.Device, error) {
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return nil, err
	}
	body, err := s.getBody(ctx, store.TableDevices, codec.DeviceKey(deviceID))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidHardwareID, "device row missing for hardware id")
	}
	var device model.Device
	if err := model.Unmarshal(body, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateDevice applies the non-nil request fields and rewrites the device
// row. The hardware id is immutable; a request attempting to change it is
// rejected.
func (s *Service) UpdateDevice(ctx context.Context, hardwareID string, req *model.DeviceCreateRequest) (*model.Device, error) {
	if req.HardwareID != nil && *req.HardwareID != hardwareID {
		return nil, fgerrors.NewConflictError(fgerrors.CodeHardwareIDImmutable, "hardware id cannot be changed")
	}

	device, err := s.GetDeviceByHardwareID(ctx, hardwareID)
	if err != nil {
		return nil, err
	}
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return nil, err
	}

	req.Apply(device)
	device.MarkUpdated(s.now())

	body, err := model.Marshal(device)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableDevices, codec.DeviceKey(deviceID),
		store.Column{Qualifier: QualifierJSON, Value: body})
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to update device", err)
	}
	return device, nil
}

// ListDevices scans the devices table and returns one page of device
// records, filtered by the criteria's deleted and assignment flags.
func (s *Service) ListDevices(ctx context.Context, criteria model.DeviceSearchCriteria, page pager.Criteria) ([]*model.Device, int, error) {
	scanner, err := s.store.Scan(ctx, store.TableDevices, nil, nil)
	if err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "unable to scan devices", err)
	}
	defer scanner.Close()

	p := pager.New[*model.Device](page)
	for scanner.Next() {
		row := scanner.Row()
		if !criteria.IncludeDeleted && row.HasColumn(QualifierDeleted) {
			continue
		}
		if criteria.ExcludeAssigned && row.HasColumn(QualifierAssignment) {
			continue
		}
		body := row.Column(QualifierJSON)
		if body == nil {
			continue
		}
		var device model.Device
		if err := model.Unmarshal(body, &device); err != nil {
			log.Printf("entity: skipping unparsable device row % x: %v", row.Key, err)
			continue
		}
		p.Process(&device)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "device scan failed", err)
	}
	return p.Results(), p.Total(), nil
}

// ListUnassignedDevices lists devices that carry no current assignment.
func (s *Service) ListUnassignedDevices(ctx context.Context, page pager.Criteria) ([]*model.Device, int, error) {
	return s.ListDevices(ctx, model.DeviceSearchCriteria{ExcludeAssigned: true}, page)
}

// DeleteDevice removes a device, soft by default. A forced delete removes
// the row and the forward hardware-id mapping.
func (s *Service) DeleteDevice(ctx context.Context, hardwareID string, force bool) error {
	device, err := s.GetDeviceByHardwareID(ctx, hardwareID)
	if err != nil {
		return err
	}
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return err
	}
	rowKey := codec.DeviceKey(deviceID)

	if force {
		if err := s.store.Delete(ctx, store.TableDevices, rowKey); err != nil {
			return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed, "unable to delete device row", err)
		}
		return s.uids.DeviceKeys.Delete(ctx, hardwareID)
	}

	device.Deleted = true
	device.MarkUpdated(s.now())
	body, err := model.Marshal(device)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, store.TableDevices, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierDeleted, Value: deletedMarker},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to mark device deleted", err)
	}
	return nil
}

// GetCurrentAssignmentToken returns the token of the device's active
// assignment, or the empty string for an unassigned device.
func (s *Service) GetCurrentAssignmentToken(ctx context.Context, hardwareID string) (string, error) {
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return "", err
	}
	cols, err := s.store.Get(ctx, store.TableDevices, codec.DeviceKey(deviceID), QualifierAssignment)
	if err != nil {
		return "", fgerrors.NewStoreError(fgerrors.CodeGetFailed, "unable to load device assignment", err)
	}
	if len(cols) == 0 {
		return "", nil
	}
	return string(cols[0].Value), nil
}

// SetDeviceAssignment writes the assignment back-reference on the device row
// and appends a history cell stamped with the current time. Both columns
// travel in one put.
func (s *Service) SetDeviceAssignment(ctx context.Context, hardwareID, assignmentToken string) error {
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return err
	}
	token := []byte(assignmentToken)
	err = s.store.Put(ctx, store.TableDevices, codec.DeviceKey(deviceID),
		store.Column{Qualifier: QualifierAssignment, Value: token},
		store.Column{Qualifier: codec.AssignmentHistoryQualifier(s.now()), Value: token},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to set device assignment", err)
	}
	return nil
}

// RemoveDeviceAssignment clears the back-reference column. History cells are
// retained.
func (s *Service) RemoveDeviceAssignment(ctx context.Context, hardwareID string) error {
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return err
	}
	err = s.store.Delete(ctx, store.TableDevices, codec.DeviceKey(deviceID), QualifierAssignment)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed, "unable to clear device assignment", err)
	}
	return nil
}

// GetDeviceAssignmentHistory returns the device's past assignment tokens,
// most recent first. History qualifiers embed a bit-inverted timestamp, so
// ascending qualifier order is already newest-first.
func (s *Service) GetDeviceAssignmentHistory(ctx context.Context, hardwareID string) ([]string, error) {
	deviceID, err := s.resolveHardwareID(ctx, hardwareID)
	if err != nil {
		return nil, err
	}
	cols, err := s.store.Get(ctx, store.TableDevices, codec.DeviceKey(deviceID))
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodeGetFailed, "unable to load device history", err)
	}
	var history []string
	for _, c := range cols {
		if codec.IsAssignmentHistoryQualifier(c.Qualifier) {
			history = append(history, string(c.Value))
		}
	}
	return history, nil
}

// resolveHardwareID maps a hardware id to the device's physical id.
func (s *Service) resolveHardwareID(ctx context.Context, hardwareID string) (uint64, error) {
	deviceID, ok, err := s.uids.DeviceKeys.GetCounterValue(ctx, hardwareID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fgerrors.NewNotFoundError(fgerrors.CodeInvalidHardwareID, "unknown hardware id")
	}
	return deviceID, nil
}
