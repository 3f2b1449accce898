package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection constants.
const (
	// defaultCallTimeout is the per-request response deadline when the
	// config does not specify one.
	defaultCallTimeout = 10 * time.Second

	// defaultInitialReconnectDelay is the first backoff interval.
	defaultInitialReconnectDelay = 1 * time.Second

	// defaultMaxReconnectDelay caps the exponential backoff.
	defaultMaxReconnectDelay = 60 * time.Second

	// handshakeTimeout bounds the auth frame exchange.
	handshakeTimeout = 10 * time.Second

	// connectAttemptTimeout bounds one dial+handshake during reconnection.
	connectAttemptTimeout = 15 * time.Second
)

// ConnectionState describes the client's position in its lifecycle.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the lowercase state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Logger defines the logging interface used by the Client.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config contains hub client settings.
type Config struct {
	// URL is the hub's WebSocket endpoint (ws:// or wss://).
	URL string

	// Token is the long-lived access token sent in the auth frame.
	Token string

	// CallTimeout is the per-request response deadline.
	CallTimeout time.Duration

	// InitialReconnectDelay is the first backoff interval after
	// transport loss.
	InitialReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration

	// MaxReconnectAttempts limits reconnection attempts. 0 means unlimited.
	MaxReconnectAttempts int
}

// Client is a hub WebSocket client with call correlation and automatic
// reconnection. Construct instances with New; each instance owns exactly
// one active connection at a time.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Event and connection callbacks are invoked from the read loop
//     goroutine and must not block.
type Client struct {
	cfg       Config
	logger    Logger
	sessionID string

	// conn is the live WebSocket connection; writes are serialised by connMu.
	conn   *websocket.Conn
	connMu sync.Mutex

	// state tracks the lifecycle; stop is closed by Disconnect to halt
	// the retry loop. Both are guarded by stateMu.
	state ConnectionState
	stop  chan struct{}

	stateMu sync.RWMutex

	// nextID is the correlation id source. It is never reset, so a call
	// issued after a disconnect can never collide with a pending entry
	// from a prior connection.
	nextID int

	// pending maps correlation ids to their in-flight calls.
	pending   map[int]*pendingCall
	pendingMu sync.Mutex

	// Subscribers for connection-state transitions and event frames.
	connSubs  []func(connected bool)
	eventSubs []func(Event)
	subMu     sync.RWMutex
}

// New creates a hub client with the given configuration.
// The client does not connect until Connect is called.
func New(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.InitialReconnectDelay <= 0 {
		cfg.InitialReconnectDelay = defaultInitialReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = defaultMaxReconnectDelay
	}

	return &Client{
		cfg:       cfg,
		logger:    noopLogger{},
		sessionID: uuid.NewString(),
		state:     StateDisconnected,
		stop:      make(chan struct{}),
		pending:   make(map[int]*pendingCall),
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Configure stores connection parameters without connecting. Values from
// the local settings store override anything set at construction time.
func (c *Client) Configure(url, token string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.cfg.URL = url
	c.cfg.Token = token
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the auth handshake has completed on a live
// connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect opens the WebSocket, performs the authentication exchange, and
// starts the read loop. Application requests are only accepted after the
// hub acknowledges the token; any failure during the handshake closes the
// socket so no half-open connection remains.
//
// Parameters:
//   - ctx: Context bounding the dial and handshake
//
// Returns:
//   - error: ErrAuthFailed if the token is rejected, ErrConnectionFailed
//     or ErrHandshakeFailed wrapped with detail otherwise
func (c *Client) Connect(ctx context.Context) error {
	// Re-arm the stop channel if a previous Disconnect closed it. Only
	// this user-facing entry point re-arms; internal reconnect attempts
	// go through connect directly so a Disconnect always sticks.
	c.stateMu.Lock()
	select {
	case <-c.stop:
		c.stop = make(chan struct{})
	default:
	}
	c.stateMu.Unlock()

	return c.connect(ctx)
}

// connect dials and commits one connection attempt. The attempt aborts,
// even after a successful handshake, if Disconnect closed the stop
// channel in the meantime.
func (c *Client) connect(ctx context.Context) error {
	c.stateMu.Lock()
	if c.cfg.URL == "" {
		c.stateMu.Unlock()
		return ErrNotConfigured
	}
	if c.state == StateConnected {
		c.stateMu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	url := c.cfg.URL
	token := c.cfg.Token
	c.stateMu.Unlock()

	conn, err := c.dial(ctx, url, token)
	if err != nil {
		c.setStateIfRunning(StateDisconnected)
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	// Commit only if no Disconnect arrived while dialing.
	c.stateMu.Lock()
	select {
	case <-c.stop:
		c.state = StateDisconnected
		c.stateMu.Unlock()
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close()
		return fmt.Errorf("%w: disconnected during connect", ErrConnectionFailed)
	default:
	}
	c.state = StateConnected
	c.stateMu.Unlock()

	go c.readLoop(conn)
	c.notifyConnection(true)

	// Event subscription rides the normal call path. A failure here is
	// not fatal: the cache still resyncs on every connect.
	if _, err := c.Call(ctx, TypeSubscribeEvents, map[string]any{"event_type": EventStateChanged}); err != nil {
		c.logger.Warn("event subscription failed", "error", err)
	}

	c.logger.Info("hub connected", "url", url, "session_id", c.sessionID)
	return nil
}

// dial opens the socket and runs the auth exchange. On any error the
// socket is closed before returning.
func (c *Client) dial(ctx context.Context, url, token string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	var challenge handshakeFrame
	if err := conn.ReadJSON(&challenge); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: reading auth challenge: %w", ErrHandshakeFailed, err)
	}
	if challenge.Type != frameTypeAuthRequired {
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected frame %q before auth", ErrHandshakeFailed, challenge.Type)
	}

	if err := conn.WriteJSON(authFrame{Type: frameTypeAuth, AccessToken: token}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: sending auth: %w", ErrHandshakeFailed, err)
	}

	var verdict handshakeFrame
	if err := conn.ReadJSON(&verdict); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: reading auth result: %w", ErrHandshakeFailed, err)
	}

	switch verdict.Type {
	case frameTypeAuthOK:
		// Clear the handshake deadline; the read loop blocks indefinitely.
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
		}
		return conn, nil
	case frameTypeAuthInvalid:
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, verdict.Message)
	default:
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected frame %q", ErrHandshakeFailed, verdict.Type)
	}
}

// Disconnect closes the connection and stops the reconnection loop.
// Every pending call is rejected with a disconnected error before the
// socket state is torn down.
func (c *Client) Disconnect() {
	// The stop channel closes regardless of the observable state: a
	// reconnect loop sitting in a failed-attempt window still reads it
	// and exits, so a Disconnect can never be outraced by a retry.
	c.stateMu.Lock()
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	wasActive := c.state != StateDisconnected
	c.state = StateDisconnected
	c.stateMu.Unlock()

	// Rejection precedes socket teardown so no entry is left unresolved.
	c.rejectPending()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if !wasActive {
		return
	}
	c.notifyConnection(false)
	c.logger.Info("hub disconnected", "session_id", c.sessionID)
}

// OnConnection registers a callback invoked on every connection-state
// transition with the new connected flag. Callbacks run on the
// connecting/disconnecting goroutine and must not block.
func (c *Client) OnConnection(fn func(connected bool)) {
	c.subMu.Lock()
	c.connSubs = append(c.connSubs, fn)
	c.subMu.Unlock()
}

// OnEvent registers a callback for unsolicited event frames.
func (c *Client) OnEvent(fn func(evt Event)) {
	c.subMu.Lock()
	c.eventSubs = append(c.eventSubs, fn)
	c.subMu.Unlock()
}

// setState records a lifecycle transition.
func (c *Client) setState(s ConnectionState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// setStateIfRunning records a transition unless Disconnect has already
// closed the stop channel, so a retry path can never overwrite the
// terminal disconnected state.
func (c *Client) setStateIfRunning(s ConnectionState) {
	c.stateMu.Lock()
	select {
	case <-c.stop:
	default:
		c.state = s
	}
	c.stateMu.Unlock()
}

// notifyConnection fans a connected flag out to subscribers.
func (c *Client) notifyConnection(connected bool) {
	c.subMu.RLock()
	subs := make([]func(bool), len(c.connSubs))
	copy(subs, c.connSubs)
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(connected)
	}
}

// notifyEvent fans an event frame out to subscribers.
func (c *Client) notifyEvent(evt Event) {
	c.subMu.RLock()
	subs := make([]func(Event), len(c.eventSubs))
	copy(subs, c.eventSubs)
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(evt)
	}
}

// writeJSON serialises and transmits one frame.
func (c *Client) writeJSON(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return newDisconnectedError()
	}
	return c.conn.WriteJSON(v)
}

// readLoop receives frames from one connection until it breaks. Loops
// from superseded connections exit without side effects because they are
// bound to their own *websocket.Conn.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if c.State() == StateDisconnected {
				return
			}
			c.logger.Warn("hub connection lost", "error", err)
			c.handleTransportLoss()
			return
		}
		c.dispatch(frame)
	}
}

// dispatch routes one incoming frame to the pending-call table or to
// event subscribers.
func (c *Client) dispatch(frame serverFrame) {
	switch frame.Type {
	case frameTypeResult:
		if frame.Success {
			c.resolveCall(frame.ID, frame.Result, nil)
			return
		}
		callErr := frame.Error
		if callErr == nil {
			callErr = &CallError{Code: "unknown_error", Message: "Malformed error frame"}
		}
		c.resolveCall(frame.ID, nil, callErr)
	case frameTypeEvent:
		var evt Event
		if err := json.Unmarshal(frame.Event, &evt); err != nil {
			c.logger.Warn("malformed event frame", "error", err)
			return
		}
		c.notifyEvent(evt)
	default:
		c.logger.Debug("unhandled frame", "type", frame.Type)
	}
}
