// Package hub provides the WebSocket client connection to the hub.
//
// This package manages:
//   - Connection lifecycle (Configure, Connect, Disconnect)
//   - The authentication frame exchange before any request is accepted
//   - Correlated request/response calls with per-call timeouts
//   - Dispatch of unsolicited event frames to subscribers
//   - Automatic reconnection with exponential backoff after transport loss
//
// # Wire Protocol
//
// The hub speaks JSON frames over a persistent WebSocket. Outgoing requests
// carry {type, id, ...payload} with a per-connection unique integer id.
// Incoming frames are either {id, type:"result", success, result|error}
// matched against a pending call, or {type:"event", event:{...}} delivered
// to event subscribers. The handshake is:
//
//	hub → auth_required
//	panel → auth (access_token)
//	hub → auth_ok | auth_invalid
//
// No application request is sent before auth_ok is received.
//
// # Call Resolution
//
// Every registered call resolves exactly once: with the matching result
// frame, with a timeout error when the deadline fires, or with a
// disconnected error when the connection is torn down. Calls are never
// retried automatically; a reconnect retries only the connection itself.
//
// # Usage
//
//	client := hub.New(hub.Config{URL: url, Token: token})
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	result, err := client.CallService(ctx, "light", "turn_on",
//	    map[string]any{"entity_id": "light.kitchen"})
package hub
