package registry

import (
	"context"
	"encoding/json"
	"fmt"
)

// Hub registry mutation commands.
const (
	cmdAreaUpdate   = "config/area_registry/update"
	cmdAreaDelete   = "config/area_registry/delete"
	cmdEntityUpdate = "config/entity_registry/update"
	cmdFloorCreate  = "config/floor_registry/create"
	cmdFloorDelete  = "config/floor_registry/delete"
	cmdLabelCreate  = "config/label_registry/create"
	cmdLabelUpdate  = "config/label_registry/update"
	cmdLabelDelete  = "config/label_registry/delete"
)

// Mutation methods issue one correlated request each and resolve on the
// hub's acknowledgement. They never mutate the local cache: the cache is
// only written by the event stream and the bulk load, which preserves
// the single-writer rule described in the package documentation.

// UpdateArea applies the given field updates to an area.
//
// Parameters:
//   - ctx: Context for cancellation
//   - areaID: Area to update
//   - updates: Registry fields to change (e.g. "name", "icon", "labels")
//
// Returns:
//   - error: The hub's rejection, or nil once acknowledged
func (c *Cache) UpdateArea(ctx context.Context, areaID string, updates map[string]any) error {
	payload := map[string]any{"area_id": areaID}
	for k, v := range updates {
		payload[k] = v
	}
	_, err := c.conn.Call(ctx, cmdAreaUpdate, payload)
	return err
}

// UpdateAreaLabels replaces the label-id list attached to an area.
func (c *Cache) UpdateAreaLabels(ctx context.Context, areaID string, labelIDs []string) error {
	return c.UpdateArea(ctx, areaID, map[string]any{"labels": labelIDs})
}

// DeleteArea removes an area from the hub's registry.
func (c *Cache) DeleteArea(ctx context.Context, areaID string) error {
	_, err := c.conn.Call(ctx, cmdAreaDelete, map[string]any{"area_id": areaID})
	return err
}

// UpdateEntity applies the given field updates to an entity registry entry.
func (c *Cache) UpdateEntity(ctx context.Context, entityID string, updates map[string]any) error {
	payload := map[string]any{"entity_id": entityID}
	for k, v := range updates {
		payload[k] = v
	}
	_, err := c.conn.Call(ctx, cmdEntityUpdate, payload)
	return err
}

// UpdateEntityLabels replaces the label-id list attached to an entity.
func (c *Cache) UpdateEntityLabels(ctx context.Context, entityID string, labelIDs []string) error {
	return c.UpdateEntity(ctx, entityID, map[string]any{"labels": labelIDs})
}

// CreateFloor creates a floor with the given name and level.
func (c *Cache) CreateFloor(ctx context.Context, name string, level int) (Floor, error) {
	raw, err := c.conn.Call(ctx, cmdFloorCreate, map[string]any{"name": name, "level": level})
	if err != nil {
		return Floor{}, err
	}

	var floor Floor
	if err := json.Unmarshal(raw, &floor); err != nil {
		return Floor{}, fmt.Errorf("decoding created floor: %w", err)
	}
	return floor, nil
}

// DeleteFloor removes a floor from the hub's registry.
func (c *Cache) DeleteFloor(ctx context.Context, floorID string) error {
	_, err := c.conn.Call(ctx, cmdFloorDelete, map[string]any{"floor_id": floorID})
	return err
}

// CreateLabel creates a label and returns the hub's record for it,
// including the assigned label id.
func (c *Cache) CreateLabel(ctx context.Context, name string) (Label, error) {
	raw, err := c.conn.Call(ctx, cmdLabelCreate, map[string]any{"name": name})
	if err != nil {
		return Label{}, err
	}

	var label Label
	if err := json.Unmarshal(raw, &label); err != nil {
		return Label{}, fmt.Errorf("decoding created label: %w", err)
	}
	return label, nil
}

// RenameLabel changes a label's name.
func (c *Cache) RenameLabel(ctx context.Context, labelID, name string) error {
	_, err := c.conn.Call(ctx, cmdLabelUpdate, map[string]any{"label_id": labelID, "name": name})
	return err
}

// DeleteLabel removes a label from the hub's registry. The hub detaches
// it from any remaining areas and entities as part of the deletion.
func (c *Cache) DeleteLabel(ctx context.Context, labelID string) error {
	_, err := c.conn.Call(ctx, cmdLabelDelete, map[string]any{"label_id": labelID})
	return err
}
