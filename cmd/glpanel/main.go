// Gray Logic Panel - Hub Synchronisation Daemon
//
// This is the main entry point for the Gray Logic Panel sync daemon.
// The panel keeps a live mirror of a home-automation hub over its
// WebSocket API:
//   - Registry cache synchronised on every (re)connect
//   - Event-driven state updates between syncs
//   - Label-based metadata overlay (room/device ordering, favourites)
//   - Optional MQTT republishing and InfluxDB state history
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/gray-logic-panel/internal/history"
	"github.com/nerrad567/gray-logic-panel/internal/hub"
	"github.com/nerrad567/gray-logic-panel/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panel/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-panel/internal/infrastructure/store"
	"github.com/nerrad567/gray-logic-panel/internal/mqttbridge"
	"github.com/nerrad567/gray-logic-panel/internal/overlay"
	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Panel",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open settings store
	settings, err := store.Open(store.Config{
		Path:        cfg.Store.Path,
		WALMode:     cfg.Store.WALMode,
		BusyTimeout: cfg.Store.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	defer func() {
		log.Info("closing settings store")
		if closeErr := settings.Close(); closeErr != nil {
			log.Error("error closing settings store", "error", closeErr)
		}
	}()
	log.Info("settings store opened", "path", cfg.Store.Path)

	// Hub credentials: config wins, stored values fill the gaps
	hubURL, hubToken, err := resolveCredentials(ctx, cfg, settings)
	if err != nil {
		return fmt.Errorf("resolving hub credentials: %w", err)
	}

	// Create hub client
	client := hub.New(hub.Config{
		CallTimeout:           cfg.Hub.GetCallTimeout(),
		InitialReconnectDelay: cfg.Hub.GetInitialReconnectDelay(),
		MaxReconnectDelay:     cfg.Hub.GetMaxReconnectDelay(),
		MaxReconnectAttempts:  cfg.Hub.Reconnect.MaxAttempts,
	})
	client.SetLogger(log.With("component", "hub"))
	client.Configure(hubURL, hubToken)

	// Registry cache mirrors the hub; every connect triggers a full resync
	cache := registry.NewCache(client)
	cache.SetLogger(log.With("component", "registry"))

	// Overlay manager; if the overlay has been disabled via settings,
	// its labels are swept once after the first successful sync
	ov := overlay.New(cache)
	ov.SetLogger(log.With("component", "overlay"))
	ov.SetBatchConcurrency(cfg.Overlay.BatchConcurrency)

	var cleanupOnce sync.Once

	client.OnEvent(cache.HandleEvent)
	client.OnConnection(func(connected bool) {
		if !connected {
			return
		}
		go func() {
			if syncErr := cache.Sync(ctx); syncErr != nil {
				log.Error("registry sync failed", "error", syncErr)
				return
			}

			enabled, flagErr := store.GetBool(ctx, settings, store.KeyOverlayEnabled, true)
			if flagErr != nil {
				log.Warn("reading overlay flag failed", "error", flagErr)
				return
			}
			if !enabled {
				cleanupOnce.Do(func() {
					res, cleanErr := ov.CleanupAllOverlayLabels(ctx)
					if cleanErr != nil {
						log.Error("overlay cleanup failed", "error", cleanErr)
						return
					}
					log.Info("overlay disabled, labels removed", "deleted", res.DeletedCount)
				})
			}
		}()
	})

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		bridge, bridgeErr := mqttbridge.Connect(cfg.MQTT)
		if bridgeErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", bridgeErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			bridge.Close()
		}()
		bridge.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)

		client.OnConnection(func(connected bool) {
			if pubErr := bridge.PublishHubStatus(connected); pubErr != nil {
				log.Warn("publishing hub status failed", "error", pubErr)
			}
		})
		cache.OnEntityState(func(entity registry.Entity) {
			if pubErr := bridge.PublishState(entity); pubErr != nil {
				log.Warn("publishing entity state failed", "entity_id", entity.EntityID, "error", pubErr)
			}
		})
	} else {
		log.Info("MQTT bridge disabled")
	}

	// State history recorder (optional)
	if cfg.InfluxDB.Enabled {
		recorder, recErr := history.Connect(cfg.InfluxDB)
		if recErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", recErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			recorder.Close()
		}()
		recorder.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		cache.OnEntityState(recorder.Record)
	} else {
		log.Info("state history disabled")
	}

	// Connect to the hub; reconnection is handled internally after this
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	defer func() {
		log.Info("disconnecting from hub")
		client.Disconnect()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Hub client
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Settings store

	log.Info("Gray Logic Panel stopped")
	return nil
}

// resolveCredentials picks the hub URL and token: config.yaml values
// win, the settings store fills any gap. A URL or token set only via
// the UI survives restarts this way.
func resolveCredentials(ctx context.Context, cfg *config.Config, settings store.Store) (string, string, error) {
	url := cfg.Hub.URL
	token := cfg.Hub.Token

	if url == "" {
		stored, err := settings.Get(ctx, store.KeyHubURL)
		if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
			return "", "", err
		}
		url = stored
	}
	if token == "" {
		stored, err := settings.Get(ctx, store.KeyHubToken)
		if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
			return "", "", err
		}
		token = stored
	}

	if url == "" || token == "" {
		return "", "", errors.New("hub url and token must be set in config or the settings store")
	}
	return url, token, nil
}

// getConfigPath returns the configuration file path.
// Uses GLPANEL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GLPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
