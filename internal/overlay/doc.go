// Package overlay persists per-panel customisation — room and device
// ordering, favourites, hidden entities, and room temperature sensor
// selection — as labels attached to the hub's own area and entity
// registries.
//
// # Why Labels
//
// Storing the overlay in the hub's label registry makes it portable:
// any panel that signs in sees the same ordering, and external tooling
// can inspect or repair it. Each overlay category owns a reserved
// label-name prefix; an order position is encoded by attaching the
// label whose name embeds that position. The mapping (target id) →
// order is always derivable by scanning only the prefixed labels
// attached to that target — there is no side index to drift out of sync.
//
// # Write Discipline
//
// Writes compute the minimal label-assignment change and issue only the
// attach/detach calls that change something; a label already in place is
// never detached and reattached. Bulk reorders rebuild dense zero-based
// positions from array order and write them with a bounded number of
// concurrent calls. Reads tolerate sparse positions: a target without an
// order label sorts after every ordered target.
//
// # Cleanup
//
// Disabling sync reverses the overlay completely: every label carrying a
// reserved prefix is detached from every target (failures on one target
// are logged and skipped, not fatal) and then deleted. The cleanup
// reports how many labels it deleted and is idempotent — a second run
// finds nothing, issues no calls, and reports zero.
//
// Two panels reordering the same room concurrently resolve by
// last-writer-wins at the hub. This is assumed, not verified.
package overlay
