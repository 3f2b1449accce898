package history

import "errors"

// Sentinel errors for the history recorder.
// Use errors.Is() to check for these errors.
var (
	// ErrNotConnected indicates the recorder is not connected to InfluxDB.
	ErrNotConnected = errors.New("history: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("history: connection failed")

	// ErrDisabled indicates the history recorder is disabled in config.
	ErrDisabled = errors.New("history: disabled in configuration")
)
