package overlay

import (
	"sort"

	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// SortAreasByOrder sorts areas by their room-order position. Areas
// without an order label keep their relative order and sort after every
// ordered area; ties break on name for a stable display.
func (m *Manager) SortAreasByOrder(areas []registry.Area) {
	order := m.AreaOrder()
	sort.SliceStable(areas, func(i, j int) bool {
		pi, pj := positionOf(order, areas[i].AreaID), positionOf(order, areas[j].AreaID)
		if pi != pj {
			return pi < pj
		}
		return areas[i].Name < areas[j].Name
	})
}

// SortEntitiesByOrder sorts entity registry entries by their
// device-order position, unordered entries last.
func (m *Manager) SortEntitiesByOrder(entries []registry.EntityEntry) {
	order := m.EntityOrder()
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := positionOf(order, entries[i].EntityID), positionOf(order, entries[j].EntityID)
		if pi != pj {
			return pi < pj
		}
		return entries[i].EntityID < entries[j].EntityID
	})
}

// SortRoomsByOrder sorts composed room views by room-order position,
// falling back to floor level then name for unordered rooms.
func (m *Manager) SortRoomsByOrder(rooms []registry.RoomWithDevices) {
	order := m.AreaOrder()
	sort.SliceStable(rooms, func(i, j int) bool {
		pi, pj := positionOf(order, rooms[i].Area.AreaID), positionOf(order, rooms[j].Area.AreaID)
		if pi != pj {
			return pi < pj
		}
		return rooms[i].Area.Name < rooms[j].Area.Name
	})
}

// positionOf returns the target's position or the unset sentinel.
func positionOf(order map[string]int, id string) int {
	if pos, ok := order[id]; ok {
		return pos
	}
	return OrderUnset
}
