package model

import "time"

// AlertSource identifies where an alert originated.
type AlertSource string

const (
	// AlertSourceDevice marks an alert raised by the device itself.
	AlertSourceDevice AlertSource = "Device"

	// AlertSourceSystem marks an alert raised by server-side processing.
	AlertSourceSystem AlertSource = "System"
)

// EventBase carries the fields shared by every event kind.
type EventBase struct {
	// SiteToken identifies the site the event was recorded under
	SiteToken string `json:"site_token"`

	// AssignmentToken identifies the assignment the event belongs to
	AssignmentToken string `json:"assignment_token"`

	// EventDate is when the event occurred on the device
	EventDate time.Time `json:"event_date"`

	// ReceivedDate is when the event reached the server
	ReceivedDate time.Time `json:"received_date"`
}

// MeasurementEntry is one named reading inside a measurements event.
type MeasurementEntry struct {
	// Name identifies the measured quantity
	Name string `json:"name"`

	// Value is the reading
	Value float64 `json:"value"`
}

// Measurements is a batch of named readings taken at one instant.
type Measurements struct {
	EventBase

	// Entries are the individual readings
	Entries []MeasurementEntry `json:"entries"`
}

// LocationEvent is a reported device position.
type LocationEvent struct {
	EventBase

	// Latitude in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees
	Longitude float64 `json:"longitude"`

	// Elevation in meters, zero when unknown
	Elevation float64 `json:"elevation,omitempty"`
}

// Alert is a device- or system-raised condition report.
type Alert struct {
	EventBase

	// Source identifies where the alert originated
	Source AlertSource `json:"source"`

	// Type is the caller-defined alert category
	Type string `json:"type"`

	// Message is the human-readable alert text
	Message string `json:"message"`

	// Acknowledged records whether an operator has seen the alert
	Acknowledged bool `json:"acknowledged"`
}

// MeasurementsCreateRequest submits a measurements event.
type MeasurementsCreateRequest struct {
	// EventDate is when the readings were taken
	EventDate time.Time `json:"event_date"`

	// Entries are the individual readings
	Entries []MeasurementEntry `json:"entries"`
}

// LocationCreateRequest submits a location event.
type LocationCreateRequest struct {
	// EventDate is when the position was recorded
	EventDate time.Time `json:"event_date"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation,omitempty"`
}

// AlertCreateRequest submits an alert event.
type AlertCreateRequest struct {
	// EventDate is when the condition was detected
	EventDate time.Time `json:"event_date"`

	// Type is the caller-defined alert category
	Type string `json:"type"`

	// Message is the human-readable alert text
	Message string `json:"message"`
}
