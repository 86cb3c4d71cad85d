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

// CreateZone allocates the next zone ordinal under the site, mints a token
// mapped to the full zone row key, and writes the zone row.
func (s *Service) CreateZone(ctx context.Context, siteToken string, req *model.ZoneCreateRequest) (*model.Zone, error) {
	siteID, err := s.resolveSiteToken(ctx, siteToken)
	if err != nil {
		if fgerrors.IsNotFound(err) {
			return nil, fgerrors.NewReferenceError(fgerrors.CodeInvalidSiteToken, "zone references unknown site")
		}
		return nil, err
	}

	zoneID, err := s.alloc.NextOrdinal(ctx, codec.SiteKey(siteID), QualifierZoneCounter)
	if err != nil {
		return nil, err
	}
	rowKey := codec.ZoneKey(siteID, zoneID)
	token, err := s.uids.ZoneKeys.CreateToken(ctx, rowKey)
	if err != nil {
		return nil, err
	}

	zone := &model.Zone{Token: token, SiteToken: siteToken}
	req.Apply(zone)
	zone.MarkCreated(s.now())

	body, err := model.Marshal(zone)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body})
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to create zone", err)
	}
	return zone, nil
}

// GetZone loads a zone by its public token.
func (s *Service) GetZone(ctx context.Context, token string) (*model.Zone, error) {
	rowKey, err := s.resolveZoneToken(ctx, token)
	if err != nil {
		return nil, err
	}
	body, err := s.getBody(ctx, store.TableSites, rowKey)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidZoneToken, "zone row missing for token")
	}
	var zone model.Zone
	if err := model.Unmarshal(body, &zone); err != nil {
		return nil, err
	}
	return &zone, nil
}

// UpdateZone applies the non-nil request fields and rewrites the zone row.
func (s *Service) UpdateZone(ctx context.Context, token string, req *model.ZoneCreateRequest) (*model.Zone, error) {
	zone, err := s.GetZone(ctx, token)
	if err != nil {
		return nil, err
	}
	rowKey, err := s.resolveZoneToken(ctx, token)
	if err != nil {
		return nil, err
	}

	req.Apply(zone)
	zone.MarkUpdated(s.now())

	body, err := model.Marshal(zone)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body})
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to update zone", err)
	}
	return zone, nil
}

// ListZonesForSite scans the zone sub-range of one site.
func (s *Service) ListZonesForSite(ctx context.Context, siteToken string, page pager.Criteria) ([]*model.Zone, int, error) {
	siteID, err := s.resolveSiteToken(ctx, siteToken)
	if err != nil {
		return nil, 0, err
	}

	scanner, err := s.store.Scan(ctx, store.TableSites,
		codec.ZonePrefix(siteID), codec.AssignmentPrefix(siteID))
	if err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "unable to scan zones", err)
	}
	defer scanner.Close()

	p := pager.New[*model.Zone](page)
	for scanner.Next() {
		row := scanner.Row()
		if row.HasColumn(QualifierDeleted) {
			continue
		}
		body := row.Column(QualifierJSON)
		if body == nil {
			continue
		}
		var zone model.Zone
		if err := model.Unmarshal(body, &zone); err != nil {
			log.Printf("entity: skipping unparsable zone row % x: %v", row.Key, err)
			continue
		}
		p.Process(&zone)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "zone scan failed", err)
	}
	return p.Results(), p.Total(), nil
}

// DeleteZone removes a zone, soft by default.
func (s *Service) DeleteZone(ctx context.Context, token string, force bool) error {
	zone, err := s.GetZone(ctx, token)
	if err != nil {
		return err
	}
	rowKey, err := s.resolveZoneToken(ctx, token)
	if err != nil {
		return err
	}

	if force {
		if err := s.store.Delete(ctx, store.TableSites, rowKey); err != nil {
			return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed, "unable to delete zone row", err)
		}
		return s.uids.ZoneKeys.Delete(ctx, token)
	}

	zone.Deleted = true
	zone.MarkUpdated(s.now())
	body, err := model.Marshal(zone)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierDeleted, Value: deletedMarker},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to mark zone deleted", err)
	}
	return nil
}

// resolveZoneToken maps a zone token to its full row key.
func (s *Service) resolveZoneToken(ctx context.Context, token string) ([]byte, error) {
	rowKey, err := s.uids.ZoneKeys.GetValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if rowKey == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidZoneToken, "unknown zone token")
	}
	return rowKey, nil
}
