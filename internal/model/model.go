// Package model defines the entity and event records persisted by the schema
// layer, the partial-update request types, and the JSON body codec shared by
// every table.
package model

import "time"

// AssignmentStatus is the lifecycle state of a device assignment.
type AssignmentStatus string

const (
	// AssignmentActive marks an assignment currently bound to a device.
	AssignmentActive AssignmentStatus = "Active"

	// AssignmentMissing marks an assignment whose device stopped reporting.
	AssignmentMissing AssignmentStatus = "Missing"

	// AssignmentReleased marks an ended assignment.
	AssignmentReleased AssignmentStatus = "Released"
)

// EntityMetadata carries the stamp columns shared by all entity kinds.
type EntityMetadata struct {
	// CreatedDate is when the entity row was first written
	CreatedDate time.Time `json:"created_date"`

	// UpdatedDate is when the entity row was last rewritten
	UpdatedDate time.Time `json:"updated_date"`

	// Deleted mirrors the soft-delete marker column
	Deleted bool `json:"deleted,omitempty"`
}

// MarkCreated stamps both dates for a freshly created entity.
func (m *EntityMetadata) MarkCreated(now time.Time) {
	m.CreatedDate = now
	m.UpdatedDate = now
}

// MarkUpdated stamps the update date.
func (m *EntityMetadata) MarkUpdated(now time.Time) {
	m.UpdatedDate = now
}

// Site is a physical location that owns devices, zones and assignments.
type Site struct {
	// Token is the externally visible site identifier (a UUID)
	Token string `json:"token"`

	// Name is the human-readable site name
	Name string `json:"name"`

	// Description is free-form text about the site
	Description string `json:"description,omitempty"`

	// ImageURL points at an image representing the site
	ImageURL string `json:"image_url,omitempty"`

	// MapType selects the map rendering used for the site
	MapType string `json:"map_type,omitempty"`

	// MapMetadata holds renderer-specific map settings
	MapMetadata map[string]string `json:"map_metadata,omitempty"`

	// Metadata holds arbitrary caller-supplied key/value pairs
	Metadata map[string]string `json:"metadata,omitempty"`

	EntityMetadata
}

// SiteCreateRequest creates or partially updates a site. Nil pointer fields
// are left unchanged on update.
type SiteCreateRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	ImageURL    *string           `json:"image_url,omitempty"`
	MapType     *string           `json:"map_type,omitempty"`
	MapMetadata map[string]string `json:"map_metadata,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Apply overwrites the site's fields from the non-nil request fields.
func (r *SiteCreateRequest) Apply(site *Site) {
	if r.Name != nil {
		site.Name = *r.Name
	}
	if r.Description != nil {
		site.Description = *r.Description
	}
	if r.ImageURL != nil {
		site.ImageURL = *r.ImageURL
	}
	if r.MapType != nil {
		site.MapType = *r.MapType
	}
	if r.MapMetadata != nil {
		site.MapMetadata = r.MapMetadata
	}
	if r.Metadata != nil {
		site.Metadata = r.Metadata
	}
}

// Location is a geographic coordinate.
type Location struct {
	// Latitude in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees
	Longitude float64 `json:"longitude"`

	// Elevation in meters, zero when unknown
	Elevation float64 `json:"elevation,omitempty"`
}

// Zone is a polygonal region inside a site.
type Zone struct {
	// Token is the externally visible zone identifier (a UUID)
	Token string `json:"token"`

	// SiteToken identifies the owning site
	SiteToken string `json:"site_token"`

	// Name is the human-readable zone name
	Name string `json:"name"`

	// BorderColor is the polygon border color for rendering
	BorderColor string `json:"border_color,omitempty"`

	// FillColor is the polygon fill color for rendering
	FillColor string `json:"fill_color,omitempty"`

	// Opacity is the fill opacity in [0,1]
	Opacity float64 `json:"opacity,omitempty"`

	// Coordinates are the polygon vertices in order
	Coordinates []Location `json:"coordinates"`

	// Metadata holds arbitrary caller-supplied key/value pairs
	Metadata map[string]string `json:"metadata,omitempty"`

	EntityMetadata
}

// ZoneCreateRequest creates or partially updates a zone.
type ZoneCreateRequest struct {
	Name        *string           `json:"name,omitempty"`
	BorderColor *string           `json:"border_color,omitempty"`
	FillColor   *string           `json:"fill_color,omitempty"`
	Opacity     *float64          `json:"opacity,omitempty"`
	Coordinates []Location        `json:"coordinates,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Apply overwrites the zone's fields from the non-nil request fields.
func (r *ZoneCreateRequest) Apply(zone *Zone) {
	if r.Name != nil {
		zone.Name = *r.Name
	}
	if r.BorderColor != nil {
		zone.BorderColor = *r.BorderColor
	}
	if r.FillColor != nil {
		zone.FillColor = *r.FillColor
	}
	if r.Opacity != nil {
		zone.Opacity = *r.Opacity
	}
	if r.Coordinates != nil {
		zone.Coordinates = r.Coordinates
	}
	if r.Metadata != nil {
		zone.Metadata = r.Metadata
	}
}

// Device is a physical piece of hardware identified by its hardware id.
type Device struct {
	// HardwareID is the caller-supplied unique device identifier
	HardwareID string `json:"hardware_id"`

	// AssetID links the device to an external asset catalog entry
	AssetID string `json:"asset_id,omitempty"`

	// Comments is free-form text about the device
	Comments string `json:"comments,omitempty"`

	// AssignmentToken is the token of the current active assignment,
	// empty when the device is unassigned
	AssignmentToken string `json:"assignment_token,omitempty"`

	// Metadata holds arbitrary caller-supplied key/value pairs
	Metadata map[string]string `json:"metadata,omitempty"`

	EntityMetadata
}

// DeviceCreateRequest creates or partially updates a device. HardwareID is
// required on create and immutable afterwards.
type DeviceCreateRequest struct {
	HardwareID *string           `json:"hardware_id,omitempty"`
	AssetID    *string           `json:"asset_id,omitempty"`
	Comments   *string           `json:"comments,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Apply overwrites the device's mutable fields from the non-nil request
// fields. HardwareID is intentionally not applied here.
func (r *DeviceCreateRequest) Apply(device *Device) {
	if r.AssetID != nil {
		device.AssetID = *r.AssetID
	}
	if r.Comments != nil {
		device.Comments = *r.Comments
	}
	if r.Metadata != nil {
		device.Metadata = r.Metadata
	}
}

// Assignment binds a device to a site for a period of time.
type Assignment struct {
	// Token is the externally visible assignment identifier (a UUID)
	Token string `json:"token"`

	// SiteToken identifies the site the device is assigned to
	SiteToken string `json:"site_token"`

	// DeviceHardwareID identifies the assigned device
	DeviceHardwareID string `json:"device_hardware_id"`

	// AssignmentType distinguishes permanent from temporary assignments
	AssignmentType string `json:"assignment_type,omitempty"`

	// AssetID links the assignment to an external asset
	AssetID string `json:"asset_id,omitempty"`

	// Status is the assignment lifecycle state
	Status AssignmentStatus `json:"status"`

	// ActiveDate is when the assignment became active
	ActiveDate time.Time `json:"active_date"`

	// ReleasedDate is when the assignment ended, nil while active
	ReleasedDate *time.Time `json:"released_date,omitempty"`

	// LastLocation is the most recent location event for the assignment
	LastLocation *Location `json:"last_location,omitempty"`

	// Metadata holds arbitrary caller-supplied key/value pairs
	Metadata map[string]string `json:"metadata,omitempty"`

	EntityMetadata
}

// AssignmentCreateRequest creates a device assignment.
type AssignmentCreateRequest struct {
	// SiteToken identifies the site to assign the device to
	SiteToken string `json:"site_token"`

	// DeviceHardwareID identifies the device being assigned
	DeviceHardwareID string `json:"device_hardware_id"`

	// AssignmentType distinguishes permanent from temporary assignments
	AssignmentType string `json:"assignment_type,omitempty"`

	// AssetID links the assignment to an external asset
	AssetID string `json:"asset_id,omitempty"`

	// Metadata holds arbitrary caller-supplied key/value pairs
	Metadata map[string]string `json:"metadata,omitempty"`
}
