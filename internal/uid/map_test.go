package uid

import (
	"context"
	"testing"

	"github.com/fieldgrid/fieldgrid/internal/store"
)

func TestMap_Bijection(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	m := NewMap(s, KindZoneKey, KindZoneValue)
	value := []byte{0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x07}
	if err := m.Create(ctx, "zone-token-1", value); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := m.GetValue(ctx, "zone-token-1")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value = % x, want % x", got, value)
	}

	name, err := m.GetName(ctx, value)
	if err != nil {
		t.Fatalf("get name: %v", err)
	}
	if name != "zone-token-1" {
		t.Errorf("name = %q, want zone-token-1", name)
	}
}

func TestMap_BijectionSurvivesRefresh(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	writer := NewMap(s, KindZoneKey, KindZoneValue)
	pairs := map[string][]byte{
		"tok-a": {0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01},
		"tok-b": {0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x02},
		"tok-c": {0x00, 0x02, 0x01, 0x00, 0x00, 0x00, 0x03},
	}
	for name, value := range pairs {
		if err := writer.Create(ctx, name, value); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	// A fresh map with a cold cache must rebuild both directions from the
	// store.
	reader := NewMap(s, KindZoneKey, KindZoneValue)
	if err := reader.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	for name, value := range pairs {
		got, err := reader.GetValue(ctx, name)
		if err != nil {
			t.Fatalf("get value %s: %v", name, err)
		}
		if string(got) != string(value) {
			t.Errorf("value for %s = % x, want % x", name, got, value)
		}
		back, err := reader.GetName(ctx, value)
		if err != nil {
			t.Fatalf("get name: %v", err)
		}
		if back != name {
			t.Errorf("name = %q, want %q", back, name)
		}
	}
}

func TestMap_AbsentIsNotAnError(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	m := NewMap(s, KindZoneKey, KindZoneValue)
	v, err := m.GetValue(ctx, "never-created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("value = % x, want nil", v)
	}

	n, err := m.GetName(ctx, []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != "" {
		t.Errorf("name = %q, want empty", n)
	}
}

func TestMap_CacheMissFallsBackToStore(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	writer := NewMap(s, KindAssignmentKey, KindAssignmentValue)
	value := []byte{0x00, 0x01, 0x02, 0x00, 0x00, 0x00, 0x09}
	if err := writer.Create(ctx, "assn-token", value); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Separate instance, cold cache, no refresh: the point get must find it.
	reader := NewMap(s, KindAssignmentKey, KindAssignmentValue)
	got, err := reader.GetValue(ctx, "assn-token")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value = % x, want % x", got, value)
	}
}

func TestMap_DeleteRemovesForwardOnly(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	m := NewMap(s, KindSiteKey, KindSiteValue)
	value := EncodeCounterValue(42)
	if err := m.Create(ctx, "site-token", value); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Delete(ctx, "site-token"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Forward direction gone, from a cold reader too.
	reader := NewMap(s, KindSiteKey, KindSiteValue)
	got, err := reader.GetValue(ctx, "site-token")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if got != nil {
		t.Errorf("forward mapping survived delete: % x", got)
	}

	// Reverse direction is intentionally retained.
	name, err := reader.GetName(ctx, value)
	if err != nil {
		t.Fatalf("get name: %v", err)
	}
	if name != "site-token" {
		t.Errorf("reverse mapping = %q, want site-token", name)
	}
}

func TestMap_KindRangesAreIsolated(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	zones := NewMap(s, KindZoneKey, KindZoneValue)
	assignments := NewMap(s, KindAssignmentKey, KindAssignmentValue)

	if err := zones.Create(ctx, "shared-token", []byte{0x01}); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if err := assignments.Create(ctx, "assn-token", []byte{0x02}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if err := zones.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if v, _ := zones.GetValue(ctx, "assn-token"); v != nil {
		t.Error("zone space leaked an assignment mapping after refresh")
	}
}

func TestCounterMap_CreateUniqueID(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sites := NewCounterMap(s, KindSiteKey, KindSiteValue)

	tok1, v1, err := sites.CreateUniqueID(ctx)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	tok2, v2, err := sites.CreateUniqueID(ctx)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if tok1 == tok2 {
		t.Error("tokens must be unique")
	}
	if v1 != 1 || v2 != 2 {
		t.Errorf("ordinals = %d, %d; want 1, 2", v1, v2)
	}

	got, ok, err := sites.GetCounterValue(ctx, tok2)
	if err != nil || !ok {
		t.Fatalf("get counter value: %v, ok=%v", err, ok)
	}
	if got != v2 {
		t.Errorf("resolved ordinal = %d, want %d", got, v2)
	}
}

func TestCounterMap_CountersIndependentPerSpace(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sites := NewCounterMap(s, KindSiteKey, KindSiteValue)
	devices := NewCounterMap(s, KindDeviceKey, KindDeviceValue)

	if _, _, err := sites.CreateUniqueID(ctx); err != nil {
		t.Fatalf("site create: %v", err)
	}
	v, err := devices.NextCounterValue(ctx)
	if err != nil {
		t.Fatalf("device counter: %v", err)
	}
	if v != 1 {
		t.Errorf("device counter started at %d, want 1", v)
	}
}

func TestManager_RefreshWarmsAllSpaces(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	seed := NewManager(s)
	token, _, err := seed.SiteKeys.CreateUniqueID(ctx)
	if err != nil {
		t.Fatalf("seed site: %v", err)
	}
	if err := seed.DeviceKeys.Create(ctx, "HW-001", EncodeCounterValue(9)); err != nil {
		t.Fatalf("seed device: %v", err)
	}

	m := NewManager(s)
	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, ok, err := m.SiteKeys.GetCounterValue(ctx, token); err != nil || !ok {
		t.Errorf("site token not resolved after refresh: ok=%v err=%v", ok, err)
	}
	if v, ok, _ := m.DeviceKeys.GetCounterValue(ctx, "HW-001"); !ok || v != 9 {
		t.Errorf("device mapping = %d, ok=%v; want 9, true", v, ok)
	}
}

func TestSeenFilter_NoFalseNegatives(t *testing.T) {
	f := newSeenFilter(128)
	names := []string{"alpha", "beta", "gamma", "delta"}
	for _, n := range names {
		f.Add([]byte(n))
	}
	for _, n := range names {
		if !f.MightContain([]byte(n)) {
			t.Errorf("filter lost %q", n)
		}
	}
}
