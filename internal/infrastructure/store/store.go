package store

import (
	"context"
	"errors"
)

// Well-known settings keys. Stored values are opaque strings; callers
// own the encoding.
const (
	// KeyHubURL is the WebSocket URL of the hub.
	KeyHubURL = "hub.url"

	// KeyHubToken is the long-lived access token for the hub.
	KeyHubToken = "hub.token"

	// KeyOverlayEnabled holds "true" or "false" for the metadata overlay.
	KeyOverlayEnabled = "overlay.enabled"
)

// Store is the persistent settings interface.
//
// Thread Safety:
//   - Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound if unset.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the value for key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an unset key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases storage resources.
	Close() error
}

// GetBool reads a key and interprets "true" as true. Missing keys
// return the fallback.
func GetBool(ctx context.Context, s Store, key string, fallback bool) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return fallback, nil
		}
		return fallback, err
	}
	return value == "true", nil
}
