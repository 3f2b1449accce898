package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrNotSynchronised) {
//	    // trigger a sync before reading
//	}
var (
	// ErrNotSynchronised is returned when a read requires a completed
	// bulk load that has not happened yet.
	ErrNotSynchronised = errors.New("registry: cache not synchronised")

	// ErrAreaNotFound is returned when a referenced area does not exist.
	ErrAreaNotFound = errors.New("registry: area not found")

	// ErrEntityNotFound is returned when a referenced entity does not exist.
	ErrEntityNotFound = errors.New("registry: entity not found")

	// ErrLabelNotFound is returned when a referenced label does not exist.
	ErrLabelNotFound = errors.New("registry: label not found")
)
