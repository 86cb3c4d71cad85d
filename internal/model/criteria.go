package model

import "time"

// DateRange bounds event queries. A nil endpoint leaves that side open.
// Both bounds are inclusive.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// DeviceSearchCriteria filters device listings.
type DeviceSearchCriteria struct {
	// IncludeDeleted keeps soft-deleted devices in the results
	IncludeDeleted bool

	// ExcludeAssigned drops devices carrying a current assignment
	ExcludeAssigned bool
}

// SiteSearchCriteria filters site listings.
type SiteSearchCriteria struct {
	IncludeDeleted bool
}
