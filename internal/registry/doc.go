// Package registry mirrors the hub's entity, area, device, floor, and
// label registries in memory.
//
// This package manages:
//   - A bulk load of all six registries on every successful connect
//   - Incremental state_changed event application
//   - Read accessors and change notifications for the UI layer
//   - Mutation calls (area/entity/floor/label updates) issued to the hub
//
// # Single-Writer Rule
//
// The cache has exactly two writers: the bulk load and the event
// dispatch. Mutation methods never touch the local maps; they issue a
// correlated request and leave the cache to be corrected by the next
// event or resync. This keeps optimistic UI updates and authoritative
// hub events on separate paths, so no locking discipline is needed
// beyond the cache's own mutex.
//
// # Resync Semantics
//
// Every bulk load replaces each mapping wholesale. A reconnect therefore
// cannot merge stale pre-disconnect data with fresh data: event ordering
// across a connection gap is not trusted, and a full resync is preferred
// over differential repair.
package registry
