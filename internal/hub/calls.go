package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// callResult carries the terminal outcome of one correlated request.
type callResult struct {
	result json.RawMessage
	err    error
}

// pendingCall is one in-flight request awaiting its result frame.
// The channel is buffered so exactly one resolution can always be
// delivered without blocking the resolver.
type pendingCall struct {
	ch    chan callResult
	timer *time.Timer
}

// Call sends a correlated request and blocks until the hub responds, the
// per-call deadline fires, the connection is torn down, or the context is
// cancelled. While no connection is live the call fails fast with a
// disconnected error instead of queuing.
//
// Parameters:
//   - ctx: Context for cancellation
//   - msgType: Wire request type (e.g. "call_service", "get_states")
//   - payload: Additional request fields; may be nil
//
// Returns:
//   - json.RawMessage: Raw result payload from the success frame
//   - error: *CallError for wire/timeout/disconnect failures, or a
//     wrapped transport error
func (c *Client) Call(ctx context.Context, msgType string, payload map[string]any) (json.RawMessage, error) {
	if !c.IsConnected() {
		return nil, newDisconnectedError()
	}

	msg := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		msg[k] = v
	}
	msg["type"] = msgType

	// The correlation id is assigned and registered before the frame is
	// written, so a send that fails mid-serialisation still resolves its
	// own pending entry instead of hanging.
	id, ch := c.registerCall(c.cfg.CallTimeout)
	msg["id"] = id

	if err := c.writeJSON(msg); err != nil {
		c.resolveCall(id, nil, fmt.Errorf("sending %s: %w", msgType, err))
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		// Resolve locally; if a concurrent resolution won the race the
		// channel already holds it and that outcome is returned instead.
		c.resolveCall(id, nil, ctx.Err())
		res := <-ch
		return res.result, res.err
	}
}

// CallService issues a call_service request.
//
// Parameters:
//   - ctx: Context for cancellation
//   - domain: Service domain (e.g. "light")
//   - service: Service name (e.g. "turn_on")
//   - data: Service data; may be nil
//
// Returns:
//   - json.RawMessage: Raw result payload
//   - error: As for Call
//
// Example:
//
//	_, err := client.CallService(ctx, "light", "turn_on",
//	    map[string]any{"entity_id": "light.kitchen"})
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) (json.RawMessage, error) {
	payload := map[string]any{
		"domain":  domain,
		"service": service,
	}
	if data != nil {
		payload["service_data"] = data
	}
	return c.Call(ctx, TypeCallService, payload)
}

// registerCall allocates the next correlation id, stores the pending
// entry, and arms its timeout. The timer fires resolveCall with a
// timeout error, so an entry whose response never arrives is removed
// rather than leaking.
func (c *Client) registerCall(timeout time.Duration) (int, <-chan callResult) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	c.nextID++
	id := c.nextID

	pc := &pendingCall{ch: make(chan callResult, 1)}
	pc.timer = time.AfterFunc(timeout, func() {
		c.resolveCall(id, nil, newTimeoutError())
	})
	c.pending[id] = pc

	return id, pc.ch
}

// resolveCall delivers the outcome for id if it is still pending.
// Removal from the table and delivery happen under one critical section,
// so every registered call resolves exactly once regardless of which of
// response, timeout, or disconnect arrives first.
func (c *Client) resolveCall(id int, result json.RawMessage, err error) {
	c.pendingMu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if !ok {
		return
	}

	pc.timer.Stop()
	pc.ch <- callResult{result: result, err: err}
}

// rejectPending resolves every pending entry with a disconnected error,
// in table iteration order, and clears the table. No entry disappears
// unresolved.
func (c *Client) rejectPending() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int]*pendingCall)
	c.pendingMu.Unlock()

	for _, pc := range pending {
		pc.timer.Stop()
		pc.ch <- callResult{err: newDisconnectedError()}
	}
}

// PendingCalls returns the number of in-flight requests. Used by health
// reporting and tests.
func (c *Client) PendingCalls() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}
