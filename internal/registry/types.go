package registry

import (
	"strings"
	"time"
)

// Entity is one entity's current state. Each state_changed event replaces
// the whole record; attributes are never partially merged, so a stale
// field can never survive an update.
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Domain returns the domain half of the entity id (e.g. "light" for
// "light.kitchen").
func (e Entity) Domain() string {
	if i := strings.IndexByte(e.EntityID, '.'); i > 0 {
		return e.EntityID[:i]
	}
	return e.EntityID
}

// FriendlyName returns the friendly_name attribute, falling back to the
// entity id.
func (e Entity) FriendlyName() string {
	if name, ok := e.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return e.EntityID
}

// Area is one record from the hub's area registry.
type Area struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	Icon    *string  `json:"icon"`
	FloorID *string  `json:"floor_id"`
	Labels  []string `json:"labels"`
	Picture *string  `json:"picture"`
}

// Device is one record from the hub's device registry.
type Device struct {
	ID           string   `json:"id"`
	AreaID       *string  `json:"area_id"`
	Name         *string  `json:"name"`
	NameByUser   *string  `json:"name_by_user"`
	Manufacturer *string  `json:"manufacturer"`
	Model        *string  `json:"model"`
	Labels       []string `json:"labels"`
	DisabledBy   *string  `json:"disabled_by"`
}

// DisplayName returns the best available name for the device.
func (d Device) DisplayName() string {
	if d.NameByUser != nil && *d.NameByUser != "" {
		return *d.NameByUser
	}
	if d.Name != nil && *d.Name != "" {
		return *d.Name
	}
	return d.ID
}

// EntityEntry is one record from the hub's entity registry. It carries
// the entity's registration metadata (area, device, labels) as opposed
// to its live state.
type EntityEntry struct {
	EntityID     string   `json:"entity_id"`
	AreaID       *string  `json:"area_id"`
	DeviceID     *string  `json:"device_id"`
	Name         *string  `json:"name"`
	OriginalName *string  `json:"original_name"`
	Icon         *string  `json:"icon"`
	Platform     string   `json:"platform"`
	Labels       []string `json:"labels"`
	HiddenBy     *string  `json:"hidden_by"`
	DisabledBy   *string  `json:"disabled_by"`
}

// DisplayName returns the best available name for the entity.
func (e EntityEntry) DisplayName() string {
	if e.Name != nil && *e.Name != "" {
		return *e.Name
	}
	if e.OriginalName != nil && *e.OriginalName != "" {
		return *e.OriginalName
	}
	return e.EntityID
}

// Floor is one record from the hub's floor registry. Level gives the
// default vertical ordering.
type Floor struct {
	FloorID string  `json:"floor_id"`
	Name    string  `json:"name"`
	Level   *int    `json:"level"`
	Icon    *string `json:"icon"`
}

// Label is one record from the hub's label registry. The metadata
// overlay repurposes labels with reserved name prefixes as its storage.
type Label struct {
	LabelID string  `json:"label_id"`
	Name    string  `json:"name"`
	Icon    *string `json:"icon"`
	Color   *string `json:"color"`
}

// StateChange is the payload of a state_changed event. A nil NewState
// signals removal of the entity.
type StateChange struct {
	EntityID string  `json:"entity_id"`
	OldState *Entity `json:"old_state"`
	NewState *Entity `json:"new_state"`
}

// RoomWithDevices is a derived, non-persisted view joining an area to
// the entities whose registry entry references it. Re-derive it on every
// read; it is never cached.
type RoomWithDevices struct {
	Area     Area
	Floor    *Floor
	Entities []Entity
}
