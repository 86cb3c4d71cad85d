package uid

import (
	"context"

	"github.com/fieldgrid/fieldgrid/internal/store"
)

// Manager holds the four indirection spaces of the schema layer. It is
// constructed explicitly and handed to the components that need it; there
// is no process-global instance.
type Manager struct {
	// SiteKeys maps site tokens to 8-byte ordinals.
	SiteKeys *CounterMap
	// DeviceKeys maps hardware ids to 8-byte ordinals.
	DeviceKeys *CounterMap
	// ZoneKeys maps zone tokens to full zone row keys.
	ZoneKeys *Map
	// AssignmentKeys maps assignment tokens to full assignment row keys.
	AssignmentKeys *Map
}

// NewManager creates the four indirection spaces over one store.
func NewManager(s store.Store) *Manager {
	return &Manager{
		SiteKeys:       NewCounterMap(s, KindSiteKey, KindSiteValue),
		DeviceKeys:     NewCounterMap(s, KindDeviceKey, KindDeviceValue),
		ZoneKeys:       NewMap(s, KindZoneKey, KindZoneValue),
		AssignmentKeys: NewMap(s, KindAssignmentKey, KindAssignmentValue),
	}
}

// Refresh warms every space's cache from the store. Called once at startup
// before the manager is handed out.
func (m *Manager) Refresh(ctx context.Context) error {
	for _, um := range []*Map{m.SiteKeys.Map, m.DeviceKeys.Map, m.ZoneKeys, m.AssignmentKeys} {
		if err := um.Refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}
