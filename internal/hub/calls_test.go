package hub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func asCallError(t *testing.T, err error) *CallError {
	t.Helper()

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
	return callErr
}

func TestCall_FailsFastWhenDisconnected(t *testing.T) {
	client := New(Config{URL: "ws://unused.local/api/websocket", Token: testToken})

	start := time.Now()
	_, err := client.Call(context.Background(), "get_states", nil)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Call() took %v, want immediate failure", elapsed)
	}

	callErr := asCallError(t, err)
	if callErr.Code != CodeDisconnected {
		t.Errorf("Code = %q, want %q", callErr.Code, CodeDisconnected)
	}
}

func TestCall_TimeoutResolvesOnce(t *testing.T) {
	h := newFakeHub(t)
	h.autoRespond = false

	client := connectedClient(t, h, Config{CallTimeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := client.Call(context.Background(), "ping", nil)
	elapsed := time.Since(start)

	callErr := asCallError(t, err)
	if callErr.Code != CodeTimeout {
		t.Errorf("Code = %q, want %q", callErr.Code, CodeTimeout)
	}
	if callErr.Message != "Request timed out" {
		t.Errorf("Message = %q, want %q", callErr.Message, "Request timed out")
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Call() resolved after %v, before the deadline", elapsed)
	}

	// The entry must be removed, not leaked, once the timer fires.
	if n := client.PendingCalls(); n != 0 {
		t.Errorf("PendingCalls() = %d, want 0", n)
	}
}

func TestCall_DisconnectRejectsPending(t *testing.T) {
	h := newFakeHub(t)
	h.autoRespond = false

	client := connectedClient(t, h, Config{CallTimeout: 30 * time.Second})

	done := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "get_states", nil)
		done <- err
	}()

	// Wait for the request to be in flight before tearing down.
	h.nextFrame(t)
	client.Disconnect()

	select {
	case err := <-done:
		callErr := asCallError(t, err)
		if callErr.Code != CodeDisconnected {
			t.Errorf("Code = %q, want %q", callErr.Code, CodeDisconnected)
		}
		if callErr.Message != "WebSocket disconnected" {
			t.Errorf("Message = %q, want %q", callErr.Message, "WebSocket disconnected")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not rejected on disconnect")
	}

	if n := client.PendingCalls(); n != 0 {
		t.Errorf("PendingCalls() = %d, want 0 after disconnect", n)
	}
}

func TestCall_ServerErrorFrame(t *testing.T) {
	h := newFakeHub(t)
	h.autoRespond = false

	client := connectedClient(t, h, Config{CallTimeout: 5 * time.Second})

	done := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "config/label_registry/delete",
			map[string]any{"label_id": "missing"})
		done <- err
	}()

	frame := h.nextFrame(t)
	id := int(frame["id"].(float64))

	h.mu.Lock()
	conn := h.conns[len(h.conns)-1]
	h.mu.Unlock()
	if err := conn.WriteJSON(map[string]any{
		"id": id, "type": "result", "success": false,
		"error": map[string]any{"code": "not_found", "message": "Label not found"},
	}); err != nil {
		t.Fatalf("writing error frame: %v", err)
	}

	err := <-done
	callErr := asCallError(t, err)
	if callErr.Code != "not_found" {
		t.Errorf("Code = %q, want %q", callErr.Code, "not_found")
	}
	if callErr.Message != "Label not found" {
		t.Errorf("Message = %q, want %q", callErr.Message, "Label not found")
	}
}

func TestCall_ContextCancellation(t *testing.T) {
	h := newFakeHub(t)
	h.autoRespond = false

	client := connectedClient(t, h, Config{CallTimeout: 30 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Call(ctx, "get_states", nil)
		done <- err
	}()

	h.nextFrame(t)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Call() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled call did not return")
	}

	if n := client.PendingCalls(); n != 0 {
		t.Errorf("PendingCalls() = %d, want 0 after cancellation", n)
	}
}

func TestCallError_Predicates(t *testing.T) {
	if !newTimeoutError().IsTimeout() {
		t.Error("IsTimeout() = false for timeout error")
	}
	if !newDisconnectedError().IsDisconnected() {
		t.Error("IsDisconnected() = false for disconnected error")
	}
	if newTimeoutError().IsDisconnected() {
		t.Error("IsDisconnected() = true for timeout error")
	}
}
