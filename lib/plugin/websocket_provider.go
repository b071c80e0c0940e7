package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// dial opens the socket to the host. It tries once, plus Config.RetryAttempts
// more times with Config.RetryDelay between attempts. Every failure is logged.
func (m *Module) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint := m.config.Endpoint()
	attempts := m.config.RetryAttempts + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, _, err := m.dialer.DialContext(ctx, endpoint, nil)
		if err == nil {
			m.logger.Info("connected to host", "endpoint", endpoint, "attempt", attempt)
			return conn, nil
		}
		lastErr = err

		m.logger.Error("connect failed",
			"endpoint", endpoint,
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(m.config.RetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w %s: %w", ErrConnect, endpoint, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w %s: %w", ErrConnect, endpoint, lastErr)
}

// setConn publishes the active socket for senders, or clears it with nil.
func (m *Module) setConn(conn *websocket.Conn) {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	m.conn = conn
}

// closeConn sends a normal close frame and releases the socket.
func (m *Module) closeConn(conn *websocket.Conn) {
	m.setConn(nil)

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		m.logger.Debug("failed to send close frame", "error", err)
	}
	if err := conn.Close(); err != nil {
		m.logger.Debug("failed to close socket", "error", err)
	}
}
