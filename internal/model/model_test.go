package model

import (
	"reflect"
	"testing"
	"time"
)

func TestSiteRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	site := Site{
		Token:       "site-token",
		Name:        "Plant Floor",
		Description: "Main assembly floor",
		ImageURL:    "https://example.com/floor.png",
		MapType:     "geo",
		MapMetadata: map[string]string{"zoom": "14"},
		Metadata:    map[string]string{"region": "west"},
	}
	site.MarkCreated(now)

	data, err := Marshal(&site)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Site
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(site, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, site)
	}
}

func TestZoneRoundTripPreservesCoordinateOrder(t *testing.T) {
	zone := Zone{
		Token:     "zone-token",
		SiteToken: "site-token",
		Name:      "Loading Dock",
		Coordinates: []Location{
			{Latitude: 33.75, Longitude: -84.39},
			{Latitude: 33.76, Longitude: -84.39},
			{Latitude: 33.76, Longitude: -84.38},
			{Latitude: 33.75, Longitude: -84.38},
		},
	}

	data, err := Marshal(&zone)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Zone
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(zone.Coordinates, got.Coordinates) {
		t.Errorf("coordinates reordered: got %+v", got.Coordinates)
	}
}

func TestAssignmentRoundTrip(t *testing.T) {
	active := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	released := active.Add(48 * time.Hour)
	assn := Assignment{
		Token:            "assn-token",
		SiteToken:        "site-token",
		DeviceHardwareID: "HW-001",
		AssignmentType:   "Associated",
		Status:           AssignmentReleased,
		ActiveDate:       active,
		ReleasedDate:     &released,
		LastLocation:     &Location{Latitude: 1, Longitude: 2, Elevation: 3},
	}

	data, err := Marshal(&assn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Assignment
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(assn, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, assn)
	}
}

func TestUnmarshalGarbageReportsCorruptBody(t *testing.T) {
	var site Site
	if err := Unmarshal([]byte("{not json"), &site); err == nil {
		t.Fatal("expected error for unparsable body")
	}
}

func TestApplySkipsNilFields(t *testing.T) {
	site := Site{Name: "Original", Description: "keep me"}
	name := "Renamed"
	req := SiteCreateRequest{Name: &name}
	req.Apply(&site)

	if site.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", site.Name)
	}
	if site.Description != "keep me" {
		t.Errorf("description overwritten: %q", site.Description)
	}
}

func TestDeviceApplyNeverTouchesHardwareID(t *testing.T) {
	device := Device{HardwareID: "HW-001"}
	hw := "HW-002"
	comments := "swapped case"
	req := DeviceCreateRequest{HardwareID: &hw, Comments: &comments}
	req.Apply(&device)

	if device.HardwareID != "HW-001" {
		t.Errorf("hardware id changed to %q", device.HardwareID)
	}
	if device.Comments != "swapped case" {
		t.Errorf("comments = %q", device.Comments)
	}
}

func TestDateRangeContains(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name string
		r    DateRange
		t    time.Time
		want bool
	}{
		{"open both sides", DateRange{}, start, true},
		{"inside", DateRange{Start: &start, End: &end}, start.Add(time.Minute), true},
		{"on start", DateRange{Start: &start, End: &end}, start, true},
		{"on end", DateRange{Start: &start, End: &end}, end, true},
		{"before", DateRange{Start: &start, End: &end}, start.Add(-time.Second), false},
		{"after", DateRange{Start: &start, End: &end}, end.Add(time.Second), false},
		{"open start", DateRange{End: &end}, start.Add(-time.Hour), true},
		{"open end", DateRange{Start: &start}, end.Add(time.Hour), true},
	}
	for _, tc := range cases {
		if got := tc.r.Contains(tc.t); got != tc.want {
			t.Errorf("%s: Contains = %v, want %v", tc.name, got, tc.want)
		}
	}
}
