package overlay

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// Reserved label-name prefixes, one per overlay category. External
// tooling discovers overlay state by scanning these prefixes, so they
// are part of the persistence contract and must not change.
const (
	// RoomOrderPrefix labels encode an area's position: the label
	// "glp_room_order_3" attached to an area places it fourth.
	RoomOrderPrefix = "glp_room_order_"

	// DeviceOrderPrefix labels encode an entity's position within its room.
	DeviceOrderPrefix = "glp_device_order_"

	// TempSensorPrefix labels mark the entity serving as a room's
	// temperature reading: "glp_room_temp_kitchen" attached to a sensor
	// selects it for the kitchen.
	TempSensorPrefix = "glp_room_temp_"

	// FavouriteLabel marks a favourited entity.
	FavouriteLabel = "glp_favourite"

	// HiddenLabel marks an entity hidden from the dashboard.
	HiddenLabel = "glp_hidden"
)

// OrderUnset is the sentinel for targets without an order label. It
// sorts after every real position.
const OrderUnset = int(^uint(0) >> 1)

// defaultBatchConcurrency bounds in-flight label writes during a bulk
// reorder when the config does not specify a limit.
const defaultBatchConcurrency = 4

// Registry is the slice of the registry cache the overlay depends on:
// label/area/entity reads plus the label mutation calls.
type Registry interface {
	AreaRegistry() map[string]registry.Area
	EntityRegistry() map[string]registry.EntityEntry
	Labels() map[string]registry.Label
	CreateLabel(ctx context.Context, name string) (registry.Label, error)
	DeleteLabel(ctx context.Context, labelID string) error
	UpdateAreaLabels(ctx context.Context, areaID string, labelIDs []string) error
	UpdateEntityLabels(ctx context.Context, entityID string, labelIDs []string) error
}

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager reads and writes the label-based metadata overlay.
//
// Thread Safety:
//   - All methods are safe for concurrent use; shared state lives in the
//     registry cache, which the manager only reads.
type Manager struct {
	reg         Registry
	logger      Logger
	concurrency int
}

// New creates an overlay manager over the given registry cache.
func New(reg Registry) *Manager {
	return &Manager{
		reg:         reg,
		logger:      noopLogger{},
		concurrency: defaultBatchConcurrency,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetBatchConcurrency bounds the number of in-flight calls during bulk
// reorders. Values below 1 are ignored.
func (m *Manager) SetBatchConcurrency(n int) {
	if n >= 1 {
		m.concurrency = n
	}
}

// AreaOrder returns the (area id) → position mapping derived by scanning
// room-order labels attached to each area. Areas without an order label
// are absent from the map.
func (m *Manager) AreaOrder() map[string]int {
	labels := m.reg.Labels()
	order := make(map[string]int)
	for _, area := range m.reg.AreaRegistry() {
		if pos, ok := orderFromLabels(labels, area.Labels, RoomOrderPrefix); ok {
			order[area.AreaID] = pos
		}
	}
	return order
}

// EntityOrder returns the (entity id) → position mapping derived from
// device-order labels on entity registry entries.
func (m *Manager) EntityOrder() map[string]int {
	labels := m.reg.Labels()
	order := make(map[string]int)
	for _, entry := range m.reg.EntityRegistry() {
		if pos, ok := orderFromLabels(labels, entry.Labels, DeviceOrderPrefix); ok {
			order[entry.EntityID] = pos
		}
	}
	return order
}

// SetAreaOrder places an area at the given zero-based position by
// swapping its room-order label. No call is issued when the area already
// carries exactly the right label.
func (m *Manager) SetAreaOrder(ctx context.Context, areaID string, position int) error {
	area, ok := m.reg.AreaRegistry()[areaID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAreaNotFound, areaID)
	}

	want, err := m.ensureOrderLabel(ctx, RoomOrderPrefix, position)
	if err != nil {
		return fmt.Errorf("minting order label: %w", err)
	}

	next, changed := replaceCategoryLabel(m.reg.Labels(), area.Labels, RoomOrderPrefix, want)
	if !changed {
		return nil
	}
	return m.reg.UpdateAreaLabels(ctx, areaID, next)
}

// SetEntityOrder places an entity at the given zero-based position
// within its room by swapping its device-order label.
func (m *Manager) SetEntityOrder(ctx context.Context, entityID string, position int) error {
	entry, ok := m.reg.EntityRegistry()[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	want, err := m.ensureOrderLabel(ctx, DeviceOrderPrefix, position)
	if err != nil {
		return fmt.Errorf("minting order label: %w", err)
	}

	next, changed := replaceCategoryLabel(m.reg.Labels(), entry.Labels, DeviceOrderPrefix, want)
	if !changed {
		return nil
	}
	return m.reg.UpdateEntityLabels(ctx, entityID, next)
}

// UpdateRoomOrder rewrites every area's position as its index in the
// given slice. Positions are always dense and zero-based after a write.
// Writes run with bounded concurrency and the call returns once the
// whole batch has been acknowledged.
func (m *Manager) UpdateRoomOrder(ctx context.Context, orderedAreaIDs []string) error {
	return m.runBatch(ctx, orderedAreaIDs, m.SetAreaOrder)
}

// UpdateEntityOrder rewrites every entity's position as its index in the
// given slice, with the same batching as UpdateRoomOrder.
func (m *Manager) UpdateEntityOrder(ctx context.Context, orderedEntityIDs []string) error {
	return m.runBatch(ctx, orderedEntityIDs, m.SetEntityOrder)
}

// runBatch applies set(id, index) for every element with at most
// m.concurrency calls in flight.
func (m *Manager) runBatch(ctx context.Context, ids []string, set func(context.Context, string, int) error) error {
	sem := make(chan struct{}, m.concurrency)
	errCh := make(chan error, len(ids))
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i, id := range ids {
			sem <- struct{}{}
			go func(position int, target string) {
				defer func() { <-sem }()
				if err := set(ctx, target, position); err != nil {
					errCh <- fmt.Errorf("%s: %w", target, err)
				} else {
					errCh <- nil
				}
			}(i, id)
		}
	}()

	var errs []error
	for range ids {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	<-done

	if len(errs) > 0 {
		return fmt.Errorf("reorder batch: %w", joinErrors(errs))
	}
	return nil
}

// SetFavourite toggles the favourite flag on an entity.
func (m *Manager) SetFavourite(ctx context.Context, entityID string, favourite bool) error {
	return m.setFlag(ctx, entityID, FavouriteLabel, favourite)
}

// SetHidden toggles the hidden flag on an entity.
func (m *Manager) SetHidden(ctx context.Context, entityID string, hidden bool) error {
	return m.setFlag(ctx, entityID, HiddenLabel, hidden)
}

// IsFavourite reports whether an entity carries the favourite label.
func (m *Manager) IsFavourite(entityID string) bool {
	return m.hasFlag(entityID, FavouriteLabel)
}

// IsHidden reports whether an entity carries the hidden label.
func (m *Manager) IsHidden(entityID string) bool {
	return m.hasFlag(entityID, HiddenLabel)
}

// setFlag attaches or detaches a flag label, minting it on first use.
// No call is issued when the entity is already in the requested state.
func (m *Manager) setFlag(ctx context.Context, entityID, labelName string, on bool) error {
	entry, ok := m.reg.EntityRegistry()[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	labels := m.reg.Labels()
	flagID, exists := findLabelByName(labels, labelName)

	if on {
		if !exists {
			label, err := m.reg.CreateLabel(ctx, labelName)
			if err != nil {
				return fmt.Errorf("minting flag label: %w", err)
			}
			flagID = label.LabelID
		}
		if slices.Contains(entry.Labels, flagID) {
			return nil
		}
		return m.reg.UpdateEntityLabels(ctx, entityID, append(slices.Clone(entry.Labels), flagID))
	}

	if !exists || !slices.Contains(entry.Labels, flagID) {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(entry.Labels), func(id string) bool { return id == flagID })
	return m.reg.UpdateEntityLabels(ctx, entityID, next)
}

// hasFlag reports whether the entity carries the named label.
func (m *Manager) hasFlag(entityID, labelName string) bool {
	entry, ok := m.reg.EntityRegistry()[entityID]
	if !ok {
		return false
	}
	labels := m.reg.Labels()
	for _, id := range entry.Labels {
		if label, ok := labels[id]; ok && label.Name == labelName {
			return true
		}
	}
	return false
}

// SetAreaTemperatureSensor selects the entity whose state serves as the
// area's temperature reading. The selection label is moved off any
// previous holder before being attached to the new one.
func (m *Manager) SetAreaTemperatureSensor(ctx context.Context, areaID, entityID string) error {
	if _, ok := m.reg.AreaRegistry()[areaID]; !ok {
		return fmt.Errorf("%w: %s", ErrAreaNotFound, areaID)
	}
	entry, ok := m.reg.EntityRegistry()[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	labelName := TempSensorPrefix + areaID
	labels := m.reg.Labels()
	labelID, exists := findLabelByName(labels, labelName)
	if !exists {
		label, err := m.reg.CreateLabel(ctx, labelName)
		if err != nil {
			return fmt.Errorf("minting sensor label: %w", err)
		}
		labelID = label.LabelID
	}

	// Detach from any previous holder first so at most one entity
	// carries the selection.
	for _, other := range m.reg.EntityRegistry() {
		if other.EntityID == entityID || !slices.Contains(other.Labels, labelID) {
			continue
		}
		next := slices.DeleteFunc(slices.Clone(other.Labels), func(id string) bool { return id == labelID })
		if err := m.reg.UpdateEntityLabels(ctx, other.EntityID, next); err != nil {
			return fmt.Errorf("detaching previous sensor %s: %w", other.EntityID, err)
		}
	}

	if slices.Contains(entry.Labels, labelID) {
		return nil
	}
	return m.reg.UpdateEntityLabels(ctx, entityID, append(slices.Clone(entry.Labels), labelID))
}

// AreaTemperatureSensor returns the entity selected as the area's
// temperature reading, if any.
func (m *Manager) AreaTemperatureSensor(areaID string) (string, bool) {
	labelName := TempSensorPrefix + areaID
	labels := m.reg.Labels()
	labelID, ok := findLabelByName(labels, labelName)
	if !ok {
		return "", false
	}
	for _, entry := range m.reg.EntityRegistry() {
		if slices.Contains(entry.Labels, labelID) {
			return entry.EntityID, true
		}
	}
	return "", false
}

// ensureOrderLabel returns the id of the label encoding position under
// the given prefix, minting it if the registry does not have one yet.
func (m *Manager) ensureOrderLabel(ctx context.Context, prefix string, position int) (string, error) {
	name := prefix + strconv.Itoa(position)
	if id, ok := findLabelByName(m.reg.Labels(), name); ok {
		return id, nil
	}

	label, err := m.reg.CreateLabel(ctx, name)
	if err != nil {
		return "", err
	}
	return label.LabelID, nil
}

// replaceCategoryLabel computes the target's next label list with the
// category's labels replaced by wantID. The second return is false when
// the list already matches, meaning no call is needed.
func replaceCategoryLabel(labels map[string]registry.Label, attached []string, prefix, wantID string) ([]string, bool) {
	next := make([]string, 0, len(attached)+1)
	already := false
	changed := false
	for _, id := range attached {
		label, known := labels[id]
		if known && strings.HasPrefix(label.Name, prefix) {
			if id == wantID {
				next = append(next, id)
				already = true
			} else {
				changed = true
			}
			continue
		}
		next = append(next, id)
	}
	if !already {
		next = append(next, wantID)
		changed = true
	}
	return next, changed
}

// orderFromLabels extracts the position encoded by the first attached
// label carrying the prefix.
func orderFromLabels(labels map[string]registry.Label, attached []string, prefix string) (int, bool) {
	for _, id := range attached {
		label, ok := labels[id]
		if !ok || !strings.HasPrefix(label.Name, prefix) {
			continue
		}
		pos, err := strconv.Atoi(strings.TrimPrefix(label.Name, prefix))
		if err != nil || pos < 0 {
			continue
		}
		return pos, true
	}
	return 0, false
}

// findLabelByName returns the id of the label with the exact name.
func findLabelByName(labels map[string]registry.Label, name string) (string, bool) {
	for id, label := range labels {
		if label.Name == name {
			return id, true
		}
	}
	return "", false
}

// joinErrors flattens a batch error list into one error.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d failures: %s", len(errs), strings.Join(msgs, "; "))
}
