package mqttbridge

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-panel/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Bridge republishes hub state onto an MQTT broker.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Bridge struct {
	client   pahomqtt.Client
	cfg      config.MQTTConfig
	clientID string
	qos      byte

	connected bool
	connMu    sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// statusPayload is the JSON body published to the status topic.
type statusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statePayload is the JSON body published per entity state change.
type statePayload struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged string         `json:"last_changed,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Appends a random suffix to the client ID so restarts never collide
//  3. Configures Last Will and Testament (LWT) for offline detection
//  4. Sets up auto-reconnect
//  5. Attempts initial connection with timeout
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Bridge: Connected bridge ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Bridge, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.Broker.ClientID, uuid.NewString()[:8])

	b := &Bridge{
		cfg:      cfg,
		clientID: clientID,
		qos:      byte(cfg.QoS),
		logger:   noopLogger{},
	}

	opts := buildClientOptions(cfg, clientID)
	configureLWT(opts, clientID)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		b.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.handleDisconnect(err)
	})

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so set connected here to ensure IsConnected() returns true.
	b.connMu.Lock()
	b.connected = true
	b.connMu.Unlock()

	return b, nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

// IsConnected reports whether the bridge currently holds a broker connection.
func (b *Bridge) IsConnected() bool {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.connected
}

// PublishHubStatus publishes the hub's connectivity as a retained
// status message. Dashboards and automations subscribed to the status
// topic see the last known state immediately.
func (b *Bridge) PublishHubStatus(online bool) error {
	status := "offline"
	if online {
		status = "online"
	}
	payload, err := json.Marshal(statusPayload{
		Status:    status,
		ClientID:  b.clientID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding status payload: %w", err)
	}
	return b.publish(Topics{}.Status(), payload, true)
}

// PublishState publishes an entity's latest state as a retained message
// on its per-entity topic.
func (b *Bridge) PublishState(entity registry.Entity) error {
	body := statePayload{
		EntityID:   entity.EntityID,
		State:      entity.State,
		Attributes: entity.Attributes,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if !entity.LastChanged.IsZero() {
		body.LastChanged = entity.LastChanged.UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding state payload: %w", err)
	}
	return b.publish(Topics{}.EntityState(entity.EntityID), payload, true)
}

// publish sends a payload and waits for broker acknowledgment.
func (b *Bridge) publish(topic string, payload []byte, retained bool) error {
	if !b.IsConnected() {
		return fmt.Errorf("%w: publishing to %s", ErrNotConnected, topic)
	}

	token := b.client.Publish(topic, b.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s after %v", ErrPublishTimeout, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close publishes a graceful offline status and disconnects.
func (b *Bridge) Close() {
	if b.IsConnected() {
		payload, err := json.Marshal(statusPayload{
			Status:    "offline",
			ClientID:  b.clientID,
			Reason:    "graceful_shutdown",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		if err == nil {
			token := b.client.Publish(Topics{}.Status(), b.qos, true, payload)
			token.WaitTimeout(defaultPublishTimeout)
		}
	}

	b.connMu.Lock()
	b.connected = false
	b.connMu.Unlock()

	b.client.Disconnect(defaultDisconnectQuiesce)
}

// handleConnect is called when the connection is established.
func (b *Bridge) handleConnect() {
	b.connMu.Lock()
	b.connected = true
	b.connMu.Unlock()
}

// handleDisconnect is called when the connection is lost.
func (b *Bridge) handleDisconnect(err error) {
	b.connMu.Lock()
	b.connected = false
	b.connMu.Unlock()

	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()
	logger.Warn("mqtt connection lost", "error", err)
}

// buildClientOptions creates paho MQTT options from panel config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with retry
//   - TLS configuration (if enabled)
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - retained messages carry the state, no persistent session needed
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the will if the panel disconnects unexpectedly,
// so subscribers can distinguish a crash from a graceful shutdown.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	willPayload := fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"unexpected_disconnect","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
	opts.SetWill(Topics{}.Status(), willPayload, 1, true)
}
