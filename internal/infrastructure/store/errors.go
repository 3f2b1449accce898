package store

import "errors"

// Sentinel errors for settings storage.
// Use errors.Is() to check for these errors.
var (
	// ErrKeyNotFound indicates the requested key has no stored value.
	ErrKeyNotFound = errors.New("settings key not found")
)
