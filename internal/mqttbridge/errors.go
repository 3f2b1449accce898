package mqttbridge

import "errors"

// Sentinel errors for the MQTT bridge.
// Use errors.Is() to check for these errors.
var (
	// ErrConnectionFailed indicates the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates a publish was attempted while offline.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishTimeout indicates the broker did not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt publish timeout")
)
