package overlay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// fakeRegistry is an in-memory stand-in for the registry cache that
// records every mutation call so tests can assert on call counts and
// label payloads. Mutations apply immediately, which mirrors the cache
// after the hub's follow-up registry events have landed.
type fakeRegistry struct {
	mu       sync.Mutex
	areas    map[string]registry.Area
	entities map[string]registry.EntityEntry
	labels   map[string]registry.Label

	nextLabelID    int
	calls          []string
	failDelete     map[string]error
	failAreaUpdate map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		areas:          make(map[string]registry.Area),
		entities:       make(map[string]registry.EntityEntry),
		labels:         make(map[string]registry.Label),
		failDelete:     make(map[string]error),
		failAreaUpdate: make(map[string]error),
	}
}

func (f *fakeRegistry) AreaRegistry() map[string]registry.Area {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]registry.Area, len(f.areas))
	for k, v := range f.areas {
		out[k] = v
	}
	return out
}

func (f *fakeRegistry) EntityRegistry() map[string]registry.EntityEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]registry.EntityEntry, len(f.entities))
	for k, v := range f.entities {
		out[k] = v
	}
	return out
}

func (f *fakeRegistry) Labels() map[string]registry.Label {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]registry.Label, len(f.labels))
	for k, v := range f.labels {
		out[k] = v
	}
	return out
}

func (f *fakeRegistry) CreateLabel(_ context.Context, name string) (registry.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLabelID++
	id := fmt.Sprintf("lbl-%d", f.nextLabelID)
	label := registry.Label{LabelID: id, Name: name}
	f.labels[id] = label
	f.calls = append(f.calls, "create_label:"+name)
	return label, nil
}

func (f *fakeRegistry) DeleteLabel(_ context.Context, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete_label:"+labelID)
	if err, ok := f.failDelete[labelID]; ok {
		return err
	}
	delete(f.labels, labelID)
	return nil
}

func (f *fakeRegistry) UpdateAreaLabels(_ context.Context, areaID string, labelIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update_area:"+areaID)
	if err, ok := f.failAreaUpdate[areaID]; ok {
		return err
	}
	area, ok := f.areas[areaID]
	if !ok {
		return errors.New("area not found")
	}
	area.Labels = labelIDs
	f.areas[areaID] = area
	return nil
}

func (f *fakeRegistry) UpdateEntityLabels(_ context.Context, entityID string, labelIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update_entity:"+entityID)
	entry, ok := f.entities[entityID]
	if !ok {
		return errors.New("entity not found")
	}
	entry.Labels = labelIDs
	f.entities[entityID] = entry
	return nil
}

func (f *fakeRegistry) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeRegistry) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeRegistry) addArea(id, name string, labels ...string) {
	f.areas[id] = registry.Area{AreaID: id, Name: name, Labels: labels}
}

func (f *fakeRegistry) addEntity(id string, labels ...string) {
	f.entities[id] = registry.EntityEntry{EntityID: id, Labels: labels}
}

func (f *fakeRegistry) addLabel(id, name string) {
	f.labels[id] = registry.Label{LabelID: id, Name: name}
}

func TestSetAreaOrder_MintsAndAttachesLabel(t *testing.T) {
	reg := newFakeRegistry()
	reg.addArea("kitchen", "Kitchen")
	m := New(reg)

	if err := m.SetAreaOrder(context.Background(), "kitchen", 2); err != nil {
		t.Fatalf("SetAreaOrder() error = %v", err)
	}

	order := m.AreaOrder()
	if got := order["kitchen"]; got != 2 {
		t.Errorf("AreaOrder()[kitchen] = %d, want 2", got)
	}
	if n := reg.callCount("create_label:" + RoomOrderPrefix + "2"); n != 1 {
		t.Errorf("create_label calls = %d, want 1", n)
	}
}

func TestSetAreaOrder_ReusesExistingLabel(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-existing", RoomOrderPrefix+"0")
	reg.addArea("kitchen", "Kitchen")
	m := New(reg)

	if err := m.SetAreaOrder(context.Background(), "kitchen", 0); err != nil {
		t.Fatalf("SetAreaOrder() error = %v", err)
	}

	if n := reg.callCount("create_label:"); n != 0 {
		t.Errorf("create_label calls = %d, want 0", n)
	}
	if !slices.Contains(reg.areas["kitchen"].Labels, "lbl-existing") {
		t.Errorf("area labels = %v, want lbl-existing attached", reg.areas["kitchen"].Labels)
	}
}

func TestSetAreaOrder_NoCallWhenUnchanged(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-1", RoomOrderPrefix+"0")
	reg.addArea("kitchen", "Kitchen", "lbl-1")
	m := New(reg)

	if err := m.SetAreaOrder(context.Background(), "kitchen", 0); err != nil {
		t.Fatalf("SetAreaOrder() error = %v", err)
	}
	if n := reg.callCount("update_area:"); n != 0 {
		t.Errorf("update_area calls = %d, want 0", n)
	}
}

func TestSetAreaOrder_ReplacesOldPosition(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-old", RoomOrderPrefix+"5")
	reg.addLabel("lbl-other", "guest_wing")
	reg.addArea("kitchen", "Kitchen", "lbl-old", "lbl-other")
	m := New(reg)

	if err := m.SetAreaOrder(context.Background(), "kitchen", 1); err != nil {
		t.Fatalf("SetAreaOrder() error = %v", err)
	}

	labels := reg.areas["kitchen"].Labels
	if slices.Contains(labels, "lbl-old") {
		t.Errorf("old order label still attached: %v", labels)
	}
	if !slices.Contains(labels, "lbl-other") {
		t.Errorf("unrelated label lost: %v", labels)
	}
	if got := m.AreaOrder()["kitchen"]; got != 1 {
		t.Errorf("AreaOrder()[kitchen] = %d, want 1", got)
	}
}

func TestSetAreaOrder_UnknownArea(t *testing.T) {
	m := New(newFakeRegistry())
	err := m.SetAreaOrder(context.Background(), "ghost", 0)
	if !errors.Is(err, ErrAreaNotFound) {
		t.Fatalf("SetAreaOrder() error = %v, want ErrAreaNotFound", err)
	}
}

func TestUpdateRoomOrder_WritesDensePositions(t *testing.T) {
	reg := newFakeRegistry()
	reg.addArea("kitchen", "Kitchen")
	reg.addArea("bedroom", "Bedroom")
	reg.addArea("lounge", "Lounge")
	m := New(reg)
	m.SetBatchConcurrency(2)

	if err := m.UpdateRoomOrder(context.Background(), []string{"lounge", "kitchen", "bedroom"}); err != nil {
		t.Fatalf("UpdateRoomOrder() error = %v", err)
	}

	order := m.AreaOrder()
	want := map[string]int{"lounge": 0, "kitchen": 1, "bedroom": 2}
	for id, pos := range want {
		if order[id] != pos {
			t.Errorf("AreaOrder()[%s] = %d, want %d", id, order[id], pos)
		}
	}
}

func TestUpdateRoomOrder_ReportsFailures(t *testing.T) {
	reg := newFakeRegistry()
	reg.addArea("kitchen", "Kitchen")
	m := New(reg)

	err := m.UpdateRoomOrder(context.Background(), []string{"kitchen", "ghost"})
	if err == nil {
		t.Fatal("UpdateRoomOrder() error = nil, want failure for unknown area")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error = %v, want mention of failing area", err)
	}
	if got := m.AreaOrder()["kitchen"]; got != 0 {
		t.Errorf("surviving write lost: AreaOrder()[kitchen] = %d, want 0", got)
	}
}

func TestSetFavourite_ToggleAndIdempotency(t *testing.T) {
	reg := newFakeRegistry()
	reg.addEntity("light.kitchen")
	m := New(reg)
	ctx := context.Background()

	if err := m.SetFavourite(ctx, "light.kitchen", true); err != nil {
		t.Fatalf("SetFavourite(true) error = %v", err)
	}
	if !m.IsFavourite("light.kitchen") {
		t.Error("IsFavourite() = false after set")
	}

	reg.resetCalls()
	if err := m.SetFavourite(ctx, "light.kitchen", true); err != nil {
		t.Fatalf("SetFavourite(true) repeat error = %v", err)
	}
	if n := reg.callCount("update_entity:"); n != 0 {
		t.Errorf("repeat set issued %d update calls, want 0", n)
	}

	if err := m.SetFavourite(ctx, "light.kitchen", false); err != nil {
		t.Fatalf("SetFavourite(false) error = %v", err)
	}
	if m.IsFavourite("light.kitchen") {
		t.Error("IsFavourite() = true after clear")
	}

	reg.resetCalls()
	if err := m.SetFavourite(ctx, "light.kitchen", false); err != nil {
		t.Fatalf("SetFavourite(false) repeat error = %v", err)
	}
	if n := reg.callCount("update_entity:"); n != 0 {
		t.Errorf("repeat clear issued %d update calls, want 0", n)
	}
}

func TestSetHidden_SharesFlagMachinery(t *testing.T) {
	reg := newFakeRegistry()
	reg.addEntity("sensor.attic")
	m := New(reg)

	if err := m.SetHidden(context.Background(), "sensor.attic", true); err != nil {
		t.Fatalf("SetHidden() error = %v", err)
	}
	if !m.IsHidden("sensor.attic") {
		t.Error("IsHidden() = false after set")
	}
	if m.IsFavourite("sensor.attic") {
		t.Error("hidden flag leaked into favourite")
	}
}

func TestSetAreaTemperatureSensor_MovesSelection(t *testing.T) {
	reg := newFakeRegistry()
	reg.addArea("kitchen", "Kitchen")
	reg.addEntity("sensor.old")
	reg.addEntity("sensor.new")
	m := New(reg)
	ctx := context.Background()

	if err := m.SetAreaTemperatureSensor(ctx, "kitchen", "sensor.old"); err != nil {
		t.Fatalf("SetAreaTemperatureSensor() error = %v", err)
	}
	if err := m.SetAreaTemperatureSensor(ctx, "kitchen", "sensor.new"); err != nil {
		t.Fatalf("SetAreaTemperatureSensor() move error = %v", err)
	}

	got, ok := m.AreaTemperatureSensor("kitchen")
	if !ok || got != "sensor.new" {
		t.Errorf("AreaTemperatureSensor() = %q, %v, want sensor.new, true", got, ok)
	}
	if len(reg.entities["sensor.old"].Labels) != 0 {
		t.Errorf("previous holder still labelled: %v", reg.entities["sensor.old"].Labels)
	}
}

func TestSortAreasByOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-0", RoomOrderPrefix+"0")
	reg.addLabel("lbl-1", RoomOrderPrefix+"1")
	reg.addArea("lounge", "Lounge", "lbl-1")
	reg.addArea("kitchen", "Kitchen", "lbl-0")
	reg.addArea("attic", "Attic")
	reg.addArea("basement", "Basement")
	m := New(reg)

	areas := []registry.Area{
		reg.areas["basement"],
		reg.areas["lounge"],
		reg.areas["attic"],
		reg.areas["kitchen"],
	}
	m.SortAreasByOrder(areas)

	got := make([]string, len(areas))
	for i, a := range areas {
		got[i] = a.AreaID
	}
	want := []string{"kitchen", "lounge", "attic", "basement"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted order = %v, want %v", got, want)
	}
}

func TestSortEntitiesByOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-0", DeviceOrderPrefix+"0")
	reg.addEntity("light.b", "lbl-0")
	reg.addEntity("light.a")
	m := New(reg)

	entries := []registry.EntityEntry{
		reg.entities["light.a"],
		reg.entities["light.b"],
	}
	m.SortEntitiesByOrder(entries)

	if entries[0].EntityID != "light.b" {
		t.Errorf("first entry = %s, want light.b", entries[0].EntityID)
	}
}

func TestAreaOrder_IgnoresMalformedLabels(t *testing.T) {
	reg := newFakeRegistry()
	reg.addLabel("lbl-bad", RoomOrderPrefix+"abc")
	reg.addLabel("lbl-neg", RoomOrderPrefix+"-1")
	reg.addArea("kitchen", "Kitchen", "lbl-bad", "lbl-neg")
	m := New(reg)

	if order := m.AreaOrder(); len(order) != 0 {
		t.Errorf("AreaOrder() = %v, want empty for malformed labels", order)
	}
}
