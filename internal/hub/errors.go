package hub

import (
	"errors"
	"fmt"
)

// Domain-specific errors for hub operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConfigured is returned when Connect is called before a URL is set.
	ErrNotConfigured = errors.New("hub: client not configured")

	// ErrAlreadyConnected is returned when Connect is called on a live connection.
	ErrAlreadyConnected = errors.New("hub: client already connected")

	// ErrConnectionFailed is returned when the WebSocket dial fails.
	ErrConnectionFailed = errors.New("hub: connection failed")

	// ErrHandshakeFailed is returned when the auth frame exchange breaks
	// before the hub accepts or rejects the token.
	ErrHandshakeFailed = errors.New("hub: handshake failed")

	// ErrAuthFailed is returned when the hub rejects the access token.
	ErrAuthFailed = errors.New("hub: authentication rejected")
)

// Well-known CallError codes produced locally by the client.
const (
	// CodeTimeout marks a call whose deadline fired with no response.
	CodeTimeout = "timeout"

	// CodeDisconnected marks a call that was pending when the connection
	// was torn down, or issued while no connection was live.
	CodeDisconnected = "disconnected"
)

// CallError is the {code, message} pair surfaced for a failed call.
// It carries either a well-formed error frame from the hub or a
// locally generated timeout/disconnect resolution, so callers have a
// single decision point for every asynchronous failure.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("hub: call failed: %s (%s)", e.Message, e.Code)
}

// IsTimeout reports whether the call failed on its local deadline.
func (e *CallError) IsTimeout() bool { return e.Code == CodeTimeout }

// IsDisconnected reports whether the call failed because the connection
// was lost or absent.
func (e *CallError) IsDisconnected() bool { return e.Code == CodeDisconnected }

// newTimeoutError returns the resolution for a call whose deadline fired.
func newTimeoutError() *CallError {
	return &CallError{Code: CodeTimeout, Message: "Request timed out"}
}

// newDisconnectedError returns the resolution for a call active during
// teardown, or issued while disconnected.
func newDisconnectedError() *CallError {
	return &CallError{Code: CodeDisconnected, Message: "WebSocket disconnected"}
}
