package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Panel client.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	Store    StoreConfig    `yaml:"store"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HubConfig contains hub WebSocket connection settings.
type HubConfig struct {
	// URL is the hub's WebSocket endpoint (ws:// or wss://).
	URL string `yaml:"url"`

	// Token is the long-lived access token for the auth handshake.
	// Prefer setting it via GLPANEL_HUB_TOKEN or the local store.
	Token string `yaml:"token"`

	// CallTimeout is the per-request response deadline in seconds.
	CallTimeout int `yaml:"call_timeout"`

	// Reconnect controls the backoff retry loop after transport loss.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains reconnection backoff settings.
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// StoreConfig contains local settings store options.
type StoreConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// OverlayConfig contains metadata overlay settings.
type OverlayConfig struct {
	// BatchConcurrency bounds the number of in-flight label writes
	// during a bulk reorder.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// MQTTConfig contains optional MQTT bridge settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains optional state history sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GLPANEL_SECTION_KEY
// For example: GLPANEL_HUB_URL, GLPANEL_HUB_TOKEN, GLPANEL_STORE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			CallTimeout: 10,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Store: StoreConfig{
			Path:        "./data/glpanel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Overlay: OverlayConfig{
			BatchConcurrency: 4,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "glpanel",
			},
			QoS: 1,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GLPANEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("GLPANEL_HUB_URL"); v != "" {
		cfg.Hub.URL = v
	}
	if v := os.Getenv("GLPANEL_HUB_TOKEN"); v != "" {
		cfg.Hub.Token = v
	}

	// Store
	if v := os.Getenv("GLPANEL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	// MQTT
	if v := os.Getenv("GLPANEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GLPANEL_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GLPANEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GLPANEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GLPANEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GLPANEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation. URL and token may also arrive from the local store,
	// so only the shape is validated here.
	if c.Hub.URL != "" && !strings.HasPrefix(c.Hub.URL, "ws://") && !strings.HasPrefix(c.Hub.URL, "wss://") {
		errs = append(errs, "hub.url must be a ws:// or wss:// endpoint")
	}
	if c.Hub.CallTimeout < 1 {
		errs = append(errs, "hub.call_timeout must be at least 1 second")
	}
	if c.Hub.Reconnect.InitialDelay < 1 {
		errs = append(errs, "hub.reconnect.initial_delay must be at least 1 second")
	}
	if c.Hub.Reconnect.MaxDelay < c.Hub.Reconnect.InitialDelay {
		errs = append(errs, "hub.reconnect.max_delay must not be below initial_delay")
	}

	// Store validation
	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}

	// Overlay validation
	if c.Overlay.BatchConcurrency < 1 {
		errs = append(errs, "overlay.batch_concurrency must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCallTimeout returns the per-request deadline as a Duration.
func (h *HubConfig) GetCallTimeout() time.Duration {
	return time.Duration(h.CallTimeout) * time.Second
}

// GetInitialReconnectDelay returns the first backoff interval as a Duration.
func (h *HubConfig) GetInitialReconnectDelay() time.Duration {
	return time.Duration(h.Reconnect.InitialDelay) * time.Second
}

// GetMaxReconnectDelay returns the backoff cap as a Duration.
func (h *HubConfig) GetMaxReconnectDelay() time.Duration {
	return time.Duration(h.Reconnect.MaxDelay) * time.Second
}
