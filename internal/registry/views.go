package registry

import (
	"math"
	"sort"
)

// RoomsWithDevices derives the room view: every area joined to the
// entities whose registry entry places them there, either directly via
// the entry's area or indirectly via its device's area. The result is
// ordered by floor level (areas without a floor last), then by area
// name. Entities within a room are ordered by entity id; callers wanting
// a user-defined order re-sort with the overlay package.
func (c *Cache) RoomsWithDevices() []RoomWithDevices {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byArea := make(map[string][]Entity, len(c.areas))
	for _, entry := range c.entries {
		areaID := c.resolveAreaLocked(entry)
		if areaID == "" {
			continue
		}
		state, ok := c.states[entry.EntityID]
		if !ok {
			continue
		}
		byArea[areaID] = append(byArea[areaID], state)
	}

	rooms := make([]RoomWithDevices, 0, len(c.areas))
	for _, area := range c.areas {
		entities := byArea[area.AreaID]
		sort.Slice(entities, func(i, j int) bool {
			return entities[i].EntityID < entities[j].EntityID
		})

		room := RoomWithDevices{Area: area, Entities: entities}
		if area.FloorID != nil {
			if floor, ok := c.floors[*area.FloorID]; ok {
				room.Floor = &floor
			}
		}
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		li, lj := floorLevel(rooms[i].Floor), floorLevel(rooms[j].Floor)
		if li != lj {
			return li < lj
		}
		return rooms[i].Area.Name < rooms[j].Area.Name
	})

	return rooms
}

// EntitiesInArea returns the live states of every entity registered to
// the given area.
func (c *Cache) EntitiesInArea(areaID string) []Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entities []Entity
	for _, entry := range c.entries {
		if c.resolveAreaLocked(entry) != areaID {
			continue
		}
		if state, ok := c.states[entry.EntityID]; ok {
			entities = append(entities, state)
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].EntityID < entities[j].EntityID
	})
	return entities
}

// resolveAreaLocked returns the area an entity belongs to: its own
// registry assignment when present, otherwise its device's. Callers must
// hold c.mu.
func (c *Cache) resolveAreaLocked(entry EntityEntry) string {
	if entry.AreaID != nil && *entry.AreaID != "" {
		return *entry.AreaID
	}
	if entry.DeviceID != nil {
		if device, ok := c.devices[*entry.DeviceID]; ok && device.AreaID != nil {
			return *device.AreaID
		}
	}
	return ""
}

// floorLevel returns the floor's level for sorting; rooms without a
// floor, or on a floor without a level, sort last.
func floorLevel(f *Floor) int {
	if f == nil || f.Level == nil {
		return math.MaxInt
	}
	return *f.Level
}
