package overlay

import (
	"context"
	"slices"
	"strings"
)

// CleanupResult reports the outcome of an overlay cleanup run.
type CleanupResult struct {
	DeletedCount int `json:"deleted_count"`
}

// CleanupRoomOrderLabels detaches and deletes every room-order label,
// returning areas to their pre-overlay state. The call is idempotent: a
// registry with no room-order labels yields zero calls and a zero count.
func (m *Manager) CleanupRoomOrderLabels(ctx context.Context) (CleanupResult, error) {
	return m.cleanupPrefix(ctx, RoomOrderPrefix)
}

// CleanupEntityOrderLabels detaches and deletes every device-order label.
func (m *Manager) CleanupEntityOrderLabels(ctx context.Context) (CleanupResult, error) {
	return m.cleanupPrefix(ctx, DeviceOrderPrefix)
}

// CleanupAllOverlayLabels removes every label the overlay owns: order
// labels, temperature-sensor selections, and the favourite and hidden
// flags. Used when the overlay is disabled outright.
func (m *Manager) CleanupAllOverlayLabels(ctx context.Context) (CleanupResult, error) {
	total := CleanupResult{}
	for _, prefix := range []string{RoomOrderPrefix, DeviceOrderPrefix, TempSensorPrefix, FavouriteLabel, HiddenLabel} {
		res, err := m.cleanupPrefix(ctx, prefix)
		total.DeletedCount += res.DeletedCount
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// cleanupPrefix detaches every label matching the prefix from its
// holders and then deletes the label itself. Each label is handled
// independently: a failure on one is logged and counted against the
// total without aborting the rest.
func (m *Manager) cleanupPrefix(ctx context.Context, prefix string) (CleanupResult, error) {
	var targets []string
	for id, label := range m.reg.Labels() {
		if strings.HasPrefix(label.Name, prefix) {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return CleanupResult{}, nil
	}

	result := CleanupResult{}
	var failures int
	for _, labelID := range targets {
		if err := m.detachLabel(ctx, labelID); err != nil {
			m.logger.Warn("overlay cleanup: detach failed", "label_id", labelID, "error", err)
			failures++
			continue
		}
		if err := m.reg.DeleteLabel(ctx, labelID); err != nil {
			m.logger.Warn("overlay cleanup: delete failed", "label_id", labelID, "error", err)
			failures++
			continue
		}
		result.DeletedCount++
	}

	m.logger.Info("overlay cleanup complete",
		"prefix", prefix,
		"deleted", result.DeletedCount,
		"failed", failures,
	)
	return result, nil
}

// detachLabel strips the label from every area and entity carrying it.
// Every holder is attempted: a failure on one target is logged and does
// not stop the others. The first error is returned so the caller knows
// the label is still attached somewhere and must not be deleted yet.
func (m *Manager) detachLabel(ctx context.Context, labelID string) error {
	var firstErr error
	for _, area := range m.reg.AreaRegistry() {
		if !slices.Contains(area.Labels, labelID) {
			continue
		}
		next := slices.DeleteFunc(slices.Clone(area.Labels), func(id string) bool { return id == labelID })
		if err := m.reg.UpdateAreaLabels(ctx, area.AreaID, next); err != nil {
			m.logger.Warn("overlay cleanup: area detach failed",
				"area_id", area.AreaID, "label_id", labelID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, entry := range m.reg.EntityRegistry() {
		if !slices.Contains(entry.Labels, labelID) {
			continue
		}
		next := slices.DeleteFunc(slices.Clone(entry.Labels), func(id string) bool { return id == labelID })
		if err := m.reg.UpdateEntityLabels(ctx, entry.EntityID, next); err != nil {
			m.logger.Warn("overlay cleanup: entity detach failed",
				"entity_id", entry.EntityID, "label_id", labelID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
