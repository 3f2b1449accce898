// Package history records entity state changes to InfluxDB.
//
// Every state change the panel receives from the hub can be written as
// a point in the "entity_state" measurement, tagged with the entity id
// and its domain. Numeric states additionally carry a parsed float
// field so Flux queries can graph sensor values directly.
//
// Writes are non-blocking and batched by the underlying client; a slow
// or unreachable InfluxDB never stalls the event path.
package history
