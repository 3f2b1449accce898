package registry

import (
	"context"
	"reflect"
	"testing"
)

func TestUpdateAreaLabels_IssuesCorrectCall(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)

	if err := cache.UpdateAreaLabels(context.Background(), "kitchen", []string{"lbl-1", "lbl-2"}); err != nil {
		t.Fatalf("UpdateAreaLabels() error = %v", err)
	}

	calls := m.callsOfType(cmdAreaUpdate)
	if len(calls) != 1 {
		t.Fatalf("area update calls = %d, want 1", len(calls))
	}
	if calls[0].payload["area_id"] != "kitchen" {
		t.Errorf("area_id = %v, want kitchen", calls[0].payload["area_id"])
	}
	if !reflect.DeepEqual(calls[0].payload["labels"], []string{"lbl-1", "lbl-2"}) {
		t.Errorf("labels = %v, want [lbl-1 lbl-2]", calls[0].payload["labels"])
	}
}

func TestUpdateEntityLabels_IssuesCorrectCall(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)

	if err := cache.UpdateEntityLabels(context.Background(), "light.kitchen", []string{"lbl-1"}); err != nil {
		t.Fatalf("UpdateEntityLabels() error = %v", err)
	}

	calls := m.callsOfType(cmdEntityUpdate)
	if len(calls) != 1 {
		t.Fatalf("entity update calls = %d, want 1", len(calls))
	}
	if calls[0].payload["entity_id"] != "light.kitchen" {
		t.Errorf("entity_id = %v, want light.kitchen", calls[0].payload["entity_id"])
	}
}

func TestCreateLabel_ParsesResult(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)

	m.respond(cmdLabelCreate, Label{LabelID: "lbl-new", Name: "glp_room_order_5"})

	label, err := cache.CreateLabel(context.Background(), "glp_room_order_5")
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	if label.LabelID != "lbl-new" {
		t.Errorf("LabelID = %q, want %q", label.LabelID, "lbl-new")
	}

	calls := m.callsOfType(cmdLabelCreate)
	if len(calls) != 1 || calls[0].payload["name"] != "glp_room_order_5" {
		t.Errorf("label create calls = %+v, want one with name glp_room_order_5", calls)
	}
}

func TestCreateFloor_ParsesResult(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)

	m.respond(cmdFloorCreate, Floor{FloorID: "basement", Name: "Basement", Level: ptr(-1)})

	floor, err := cache.CreateFloor(context.Background(), "Basement", -1)
	if err != nil {
		t.Fatalf("CreateFloor() error = %v", err)
	}
	if floor.FloorID != "basement" || floor.Level == nil || *floor.Level != -1 {
		t.Errorf("floor = %+v, want basement at level -1", floor)
	}
}

func TestDeleteOperations_IssueCorrectCalls(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)
	ctx := context.Background()

	if err := cache.DeleteArea(ctx, "bedroom"); err != nil {
		t.Fatalf("DeleteArea() error = %v", err)
	}
	if err := cache.DeleteFloor(ctx, "first"); err != nil {
		t.Fatalf("DeleteFloor() error = %v", err)
	}
	if err := cache.DeleteLabel(ctx, "lbl-1"); err != nil {
		t.Fatalf("DeleteLabel() error = %v", err)
	}

	for _, tt := range []struct {
		msgType string
		key     string
		want    string
	}{
		{cmdAreaDelete, "area_id", "bedroom"},
		{cmdFloorDelete, "floor_id", "first"},
		{cmdLabelDelete, "label_id", "lbl-1"},
	} {
		calls := m.callsOfType(tt.msgType)
		if len(calls) != 1 || calls[0].payload[tt.key] != tt.want {
			t.Errorf("%s calls = %+v, want one with %s=%s", tt.msgType, calls, tt.key, tt.want)
		}
	}
}

func TestMutations_DoNotTouchCache(t *testing.T) {
	m := newMockCaller()
	seedRegistries(m)
	cache := syncedCache(t, m)

	if err := cache.UpdateArea(context.Background(), "kitchen", map[string]any{"name": "New Kitchen"}); err != nil {
		t.Fatalf("UpdateArea() error = %v", err)
	}

	// The cache is only written by events and bulk loads.
	if cache.AreaRegistry()["kitchen"].Name != "Kitchen" {
		t.Error("mutation call wrote to the local cache")
	}
}
