package entity

import (
	"context"
	"log"

	"github.com/fieldgrid/fieldgrid/internal/alloc"
	"github.com/fieldgrid/fieldgrid/internal/codec"
	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/model"
	"github.com/fieldgrid/fieldgrid/internal/pager"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// CreateSite mints a site token, allocates the physical id, and writes the
// site row. The row carries the body plus the zone and assignment ordinal
// counters, pre-seeded so children allocate downward from the top of the
// range.
func (s *Service) CreateSite(ctx context.Context, req *model.SiteCreateRequest) (*model.Site, error) {
	token, siteID, err := s.uids.SiteKeys.CreateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	site := &model.Site{Token: token}
	req.Apply(site)
	site.MarkCreated(s.now())

	body, err := model.Marshal(site)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableSites, codec.SiteKey(siteID),
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierZoneCounter, Value: encodeCounter(alloc.CounterSeed)},
		store.Column{Qualifier: QualifierAssignmentCounter, Value: encodeCounter(alloc.CounterSeed)},
	)
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to create site", err)
	}
	return site, nil
}

// GetSiteByToken loads a site by its public token.
func (s *Service) GetSiteByToken(ctx context.Context, token string) (*model.Site, error) {
	siteID, err := s.resolveSiteToken(ctx, token)
	if err != nil {
		return nil, err
	}
	body, err := s.getBody(ctx, store.TableSites, codec.SiteKey(siteID))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fgerrors.NewNotFoundError(fgerrors.CodeInvalidSiteToken, "site row missing for token")
	}
	var site model.Site
	if err := model.Unmarshal(body, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// UpdateSite applies the non-nil request fields to an existing site and
// rewrites the body row.
func (s *Service) UpdateSite(ctx context.Context, token string, req *model.SiteCreateRequest) (*model.Site, error) {
	site, err := s.GetSiteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	siteID, err := s.resolveSiteToken(ctx, token)
	if err != nil {
		return nil, err
	}

	req.Apply(site)
	site.MarkUpdated(s.now())

	body, err := model.Marshal(site)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, store.TableSites, codec.SiteKey(siteID),
		store.Column{Qualifier: QualifierJSON, Value: body})
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to update site", err)
	}
	return site, nil
}

// ListSites scans the sites table and returns one page of site records. Zone
// and assignment rows share the table; they are recognized by key length and
// skipped.
func (s *Service) ListSites(ctx context.Context, criteria model.SiteSearchCriteria, page pager.Criteria) ([]*model.Site, int, error) {
	scanner, err := s.store.Scan(ctx, store.TableSites, nil, nil)
	if err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "unable to scan sites", err)
	}
	defer scanner.Close()

	p := pager.New[*model.Site](page)
	for scanner.Next() {
		row := scanner.Row()
		if len(row.Key) != codec.SiteIdentifierLength {
			continue
		}
		if !criteria.IncludeDeleted && row.HasColumn(QualifierDeleted) {
			continue
		}
		body := row.Column(QualifierJSON)
		if body == nil {
			continue
		}
		var site model.Site
		if err := model.Unmarshal(body, &site); err != nil {
			log.Printf("entity: skipping unparsable site row % x: %v", row.Key, err)
			continue
		}
		p.Process(&site)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fgerrors.NewStoreError(fgerrors.CodeScanFailed, "site scan failed", err)
	}
	return p.Results(), p.Total(), nil
}

// DeleteSite removes a site. The default soft delete rewrites the body with
// the deleted flag and adds the marker column in one atomic put. A forced
// delete removes the row and the forward token mapping; the reverse mapping
// is retained.
func (s *Service) DeleteSite(ctx context.Context, token string, force bool) error {
	site, err := s.GetSiteByToken(ctx, token)
	if err != nil {
		return err
	}
	siteID, err := s.resolveSiteToken(ctx, token)
	if err != nil {
		return err
	}
	rowKey := codec.SiteKey(siteID)

	if force {
		if err := s.store.Delete(ctx, store.TableSites, rowKey); err != nil {
			return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed, "unable to delete site row", err)
		}
		return s.uids.SiteKeys.Delete(ctx, token)
	}

	site.Deleted = true
	site.MarkUpdated(s.now())
	body, err := model.Marshal(site)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, store.TableSites, rowKey,
		store.Column{Qualifier: QualifierJSON, Value: body},
		store.Column{Qualifier: QualifierDeleted, Value: deletedMarker},
	)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed, "unable to mark site deleted", err)
	}
	return nil
}

// resolveSiteToken maps a site token to its physical id.
func (s *Service) resolveSiteToken(ctx context.Context, token string) (uint64, error) {
	siteID, ok, err := s.uids.SiteKeys.GetCounterValue(ctx, token)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fgerrors.NewNotFoundError(fgerrors.CodeInvalidSiteToken, "unknown site token")
	}
	return siteID, nil
}
