package overlay

import "errors"

// Domain errors for the overlay package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAreaNotFound is returned when an overlay write targets an area
	// missing from the registry cache.
	ErrAreaNotFound = errors.New("overlay: area not found")

	// ErrEntityNotFound is returned when an overlay write targets an
	// entity missing from the registry cache.
	ErrEntityNotFound = errors.New("overlay: entity not found")
)
