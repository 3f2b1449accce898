package hub

import (
	"context"
	"time"
)

// handleTransportLoss runs when the read loop breaks on an unrequested
// error. Pending calls are rejected immediately so callers get fast
// feedback, then the retry loop takes over. The cache's full resync is
// driven by the OnConnection(true) notification a successful reconnect
// emits, not by this package.
func (c *Client) handleTransportLoss() {
	c.rejectPending()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.setStateIfRunning(StateReconnecting)
	c.notifyConnection(false)

	go c.reconnectLoop()
}

// reconnectLoop retries Connect with exponential backoff until it
// succeeds, the attempt limit is reached, or Disconnect is called.
// Mutation calls issued while this loop runs fail fast with a
// disconnected error rather than queuing.
func (c *Client) reconnectLoop() {
	c.stateMu.RLock()
	stop := c.stop
	c.stateMu.RUnlock()

	delay := c.cfg.InitialReconnectDelay
	attempt := 0

	for {
		select {
		case <-stop:
			return
		case <-time.After(delay):
		}

		attempt++
		c.logger.Info("reconnecting to hub", "attempt", attempt, "delay", delay.String())

		// connect, not Connect: an attempt must never re-arm the stop
		// channel a concurrent Disconnect has closed.
		ctx, cancel := context.WithTimeout(context.Background(), connectAttemptTimeout)
		err := c.connect(ctx)
		cancel()

		if err == nil {
			c.logger.Info("hub reconnected", "attempts", attempt)
			return
		}

		c.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)

		if c.cfg.MaxReconnectAttempts > 0 && attempt >= c.cfg.MaxReconnectAttempts {
			c.logger.Error("reconnect attempts exhausted", "attempts", attempt)
			c.setState(StateDisconnected)
			return
		}

		c.setStateIfRunning(StateReconnecting)
		delay = nextDelay(delay, c.cfg.MaxReconnectDelay)
	}
}

// nextDelay doubles the backoff interval up to the configured cap.
func nextDelay(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}
