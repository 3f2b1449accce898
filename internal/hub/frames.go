package hub

import "encoding/json"

// Frame types in the hub WebSocket protocol.
const (
	frameTypeAuthRequired = "auth_required"
	frameTypeAuth         = "auth"
	frameTypeAuthOK       = "auth_ok"
	frameTypeAuthInvalid  = "auth_invalid"
	frameTypeResult       = "result"
	frameTypeEvent        = "event"
)

// Request types understood by the hub.
const (
	TypeCallService     = "call_service"
	TypeSubscribeEvents = "subscribe_events"
)

// EventStateChanged is the event type carrying entity state transitions.
const EventStateChanged = "state_changed"

// authFrame is the client half of the authentication exchange.
type authFrame struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// handshakeFrame covers every server frame seen during the auth exchange.
type handshakeFrame struct {
	Type       string `json:"type"`
	HubVersion string `json:"ha_version,omitempty"`
	Message    string `json:"message,omitempty"`
}

// serverFrame covers every post-handshake frame the hub sends. Result
// frames are matched against the pending-call table by ID; event frames
// are handed to event subscribers.
type serverFrame struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *CallError      `json:"error,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

// Event is an unsolicited push from the hub, delivered to subscribers
// registered via OnEvent. Data is left raw; the registry cache owns the
// decoding of state_changed payloads.
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin,omitempty"`
	TimeFired string          `json:"time_fired,omitempty"`
}
