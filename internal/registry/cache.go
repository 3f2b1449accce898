package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-panel/internal/hub"
)

// Hub registry commands.
const (
	cmdGetStates  = "get_states"
	cmdAreaList   = "config/area_registry/list"
	cmdDeviceList = "config/device_registry/list"
	cmdEntityList = "config/entity_registry/list"
	cmdFloorList  = "config/floor_registry/list"
	cmdLabelList  = "config/label_registry/list"
)

// Caller is the slice of the hub client the cache depends on. Narrowing
// it to one method keeps the cache testable without a live connection.
type Caller interface {
	Call(ctx context.Context, msgType string, payload map[string]any) (json.RawMessage, error)
}

// Logger defines the logging interface used by the Cache.
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

// Cache mirrors the hub's registries in memory.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Maps returned by read accessors are live references; callers must
//     treat them as read-only and re-derive views on each read.
type Cache struct {
	conn   Caller
	logger Logger

	mu      sync.RWMutex
	synced  bool
	states  map[string]Entity
	areas   map[string]Area
	devices map[string]Device
	entries map[string]EntityEntry
	floors  map[string]Floor
	labels  map[string]Label

	// changeSubs fire after any cache write; stateSubs fire with the new
	// state of one entity after a state_changed replace.
	changeSubs []func()
	stateSubs  []func(Entity)
	subMu      sync.RWMutex
}

// NewCache creates a registry cache backed by the given hub connection.
func NewCache(conn Caller) *Cache {
	return &Cache{
		conn:    conn,
		logger:  noopLogger{},
		states:  make(map[string]Entity),
		areas:   make(map[string]Area),
		devices: make(map[string]Device),
		entries: make(map[string]EntityEntry),
		floors:  make(map[string]Floor),
		labels:  make(map[string]Label),
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Sync performs the full bulk load: six parallel registry fetches whose
// results replace the corresponding mappings wholesale. On any fetch
// failure the cache is left untouched and the first error is returned.
//
// Sync runs on every successful connect, initial or after reconnect, so
// the cache can never merge stale pre-disconnect data with fresh data.
func (c *Cache) Sync(ctx context.Context) error {
	var (
		states  map[string]Entity
		areas   map[string]Area
		devices map[string]Device
		entries map[string]EntityEntry
		floors  map[string]Floor
		labels  map[string]Label
	)

	fetches := []struct {
		name string
		run  func() error
	}{
		{"states", func() (err error) {
			states, err = fetchKeyed[Entity](ctx, c.conn, cmdGetStates, func(e Entity) string { return e.EntityID })
			return
		}},
		{"areas", func() (err error) {
			areas, err = fetchKeyed[Area](ctx, c.conn, cmdAreaList, func(a Area) string { return a.AreaID })
			return
		}},
		{"devices", func() (err error) {
			devices, err = fetchKeyed[Device](ctx, c.conn, cmdDeviceList, func(d Device) string { return d.ID })
			return
		}},
		{"entities", func() (err error) {
			entries, err = fetchKeyed[EntityEntry](ctx, c.conn, cmdEntityList, func(e EntityEntry) string { return e.EntityID })
			return
		}},
		{"floors", func() (err error) {
			floors, err = fetchKeyed[Floor](ctx, c.conn, cmdFloorList, func(f Floor) string { return f.FloorID })
			return
		}},
		{"labels", func() (err error) {
			labels, err = fetchKeyed[Label](ctx, c.conn, cmdLabelList, func(l Label) string { return l.LabelID })
			return
		}},
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(fetches))
	for _, f := range fetches {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.run(); err != nil {
				errCh <- fmt.Errorf("fetching %s: %w", f.name, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}

	c.mu.Lock()
	c.states = states
	c.areas = areas
	c.devices = devices
	c.entries = entries
	c.floors = floors
	c.labels = labels
	c.synced = true
	c.mu.Unlock()

	c.logger.Info("registry synchronised",
		"states", len(states),
		"areas", len(areas),
		"devices", len(devices),
		"entities", len(entries),
		"floors", len(floors),
		"labels", len(labels),
	)

	c.notifyChange()
	return nil
}

// fetchKeyed issues one list command and keys the result slice by id.
func fetchKeyed[T any](ctx context.Context, conn Caller, msgType string, key func(T) string) (map[string]T, error) {
	raw, err := conn.Call(ctx, msgType, nil)
	if err != nil {
		return nil, err
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", msgType, err)
	}

	m := make(map[string]T, len(list))
	for _, item := range list {
		m[key(item)] = item
	}
	return m, nil
}

// HandleEvent applies one hub event to the cache. Only state_changed is
// consumed; each event fully replaces the one entity it targets: create
// on a new id, replace on an existing one, remove when the new state is
// absent.
func (c *Cache) HandleEvent(evt hub.Event) {
	if evt.EventType != hub.EventStateChanged {
		return
	}

	var sc StateChange
	if err := json.Unmarshal(evt.Data, &sc); err != nil {
		c.logger.Warn("malformed state_changed event", "error", err)
		return
	}

	c.mu.Lock()
	if sc.NewState == nil {
		delete(c.states, sc.EntityID)
	} else {
		c.states[sc.EntityID] = *sc.NewState
	}
	c.mu.Unlock()

	if sc.NewState != nil {
		c.notifyState(*sc.NewState)
	}
	c.notifyChange()
}

// OnChange registers a callback fired after every cache write, bulk or
// incremental. Callbacks run on the writer's goroutine and must not block.
func (c *Cache) OnChange(fn func()) {
	c.subMu.Lock()
	c.changeSubs = append(c.changeSubs, fn)
	c.subMu.Unlock()
}

// OnEntityState registers a callback fired with the new state of each
// entity replaced by a state_changed event.
func (c *Cache) OnEntityState(fn func(Entity)) {
	c.subMu.Lock()
	c.stateSubs = append(c.stateSubs, fn)
	c.subMu.Unlock()
}

func (c *Cache) notifyChange() {
	c.subMu.RLock()
	subs := make([]func(), len(c.changeSubs))
	copy(subs, c.changeSubs)
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}

func (c *Cache) notifyState(e Entity) {
	c.subMu.RLock()
	subs := make([]func(Entity), len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Synchronised reports whether at least one bulk load has completed.
func (c *Cache) Synchronised() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// States returns the live entity state mapping keyed by entity id.
func (c *Cache) States() map[string]Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states
}

// GetState returns one entity's current state.
func (c *Cache) GetState(entityID string) (Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.states[entityID]
	return e, ok
}

// AreaRegistry returns the live area mapping keyed by area id.
func (c *Cache) AreaRegistry() map[string]Area {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.areas
}

// DeviceRegistry returns the live device mapping keyed by device id.
func (c *Cache) DeviceRegistry() map[string]Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.devices
}

// EntityRegistry returns the live entity registry mapping keyed by
// entity id.
func (c *Cache) EntityRegistry() map[string]EntityEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}

// FloorRegistry returns the live floor mapping keyed by floor id.
func (c *Cache) FloorRegistry() map[string]Floor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.floors
}

// Labels returns the live label mapping keyed by label id.
func (c *Cache) Labels() map[string]Label {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.labels
}

// Area returns one area by id. Reads before the first completed bulk
// load fail with ErrNotSynchronised so callers can distinguish "unknown
// area" from "nothing loaded yet".
func (c *Cache) Area(areaID string) (Area, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return Area{}, ErrNotSynchronised
	}
	area, ok := c.areas[areaID]
	if !ok {
		return Area{}, fmt.Errorf("%w: %s", ErrAreaNotFound, areaID)
	}
	return area, nil
}

// Entry returns one entity registry entry by entity id, with the same
// synchronisation guard as Area.
func (c *Cache) Entry(entityID string) (EntityEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return EntityEntry{}, ErrNotSynchronised
	}
	entry, ok := c.entries[entityID]
	if !ok {
		return EntityEntry{}, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return entry, nil
}

// Label returns one label by id, with the same synchronisation guard
// as Area.
func (c *Cache) Label(labelID string) (Label, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return Label{}, ErrNotSynchronised
	}
	label, ok := c.labels[labelID]
	if !ok {
		return Label{}, fmt.Errorf("%w: %s", ErrLabelNotFound, labelID)
	}
	return label, nil
}
