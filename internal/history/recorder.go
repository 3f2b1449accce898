package history

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-panel/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panel/internal/registry"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000
)

// measurement is the InfluxDB measurement every state point lands in.
const measurement = "entity_state"

// Recorder writes entity state changes to InfluxDB.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Writes are non-blocking and batched.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	connected bool
	mu        sync.RWMutex

	// onError is called when async write errors occur.
	onError func(err error)
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Verifies connectivity with a ping
//  3. Configures the non-blocking write API with batching
//  4. Sets up error forwarding for async write failures
//
// Parameters:
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Recorder: Connected recorder ready for use
//   - error: If the recorder is disabled or connection fails
func Connect(cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	r := &Recorder{
		client:    client,
		writeAPI:  writeAPI,
		cfg:       cfg,
		connected: true,
	}

	go r.handleWriteErrors(writeAPI.Errors())

	return r, nil
}

// SetOnError registers a callback for asynchronous write failures.
func (r *Recorder) SetOnError(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// IsConnected reports whether the recorder holds a live connection.
func (r *Recorder) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Record writes an entity's state as a point in the entity_state
// measurement. Numeric states carry a parsed "value" field alongside
// the raw "state" string; non-numeric states carry the string only.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (r *Recorder) Record(entity registry.Entity) {
	if !r.IsConnected() {
		return
	}

	fields := stateFields(entity.State)

	ts := entity.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		measurement,
		map[string]string{
			"entity_id": entity.EntityID,
			"domain":    entity.Domain(),
		},
		fields,
		ts,
	)

	r.writeAPI.WritePoint(point)
}

// Flush forces any batched points to be written immediately.
func (r *Recorder) Flush() {
	r.writeAPI.Flush()
}

// Close flushes pending writes and shuts down the connection.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()

	r.writeAPI.Flush()
	r.client.Close()
}

// stateFields builds the point fields for a state string. Numeric
// states carry a parsed "value" field alongside the raw string.
func stateFields(state string) map[string]interface{} {
	fields := map[string]interface{}{
		"state": state,
	}
	if value, err := strconv.ParseFloat(state, 64); err == nil {
		fields["value"] = value
	}
	return fields
}

// handleWriteErrors forwards async write errors to the callback.
func (r *Recorder) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		r.mu.RLock()
		callback := r.onError
		r.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}
