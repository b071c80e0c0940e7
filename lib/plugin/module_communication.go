// Package plugin provides communication functionality for Module.
//
// This file contains methods for sending frames to the host.
package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/snowmerak/spotter.go/lib/protocol"
)

// sendReady sends the pluginReady handshake. Listen calls it exactly once,
// before any inbound frame is read.
func (m *Module) sendReady(ctx context.Context) error {
	return m.send(ctx, protocol.PluginReady{ConnectionID: m.config.connectionID()})
}

// SendSuggestions pushes an mlSuggestions message outside of any request.
// An empty path is omitted from the frame. It fails with ErrNotConnected
// unless Listen holds an open socket.
func (m *Module) SendSuggestions(ctx context.Context, path string) error {
	return m.send(ctx, protocol.Suggestions{
		Path:         path,
		ConnectionID: m.config.connectionID(),
	})
}

// send encodes resp and writes it as one text frame.
func (m *Module) send(ctx context.Context, resp protocol.Response) error {
	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", resp.Type(), err)
	}

	m.connMu.RLock()
	conn := m.conn
	m.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%w: cannot send %s", ErrNotConnected, resp.Type())
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// gorilla/websocket allows a single concurrent writer.
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.SetWriteDeadline(m.writeDeadline(ctx)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", resp.Type(), err)
	}

	return nil
}

// writeDeadline picks the earlier of the context deadline and Config.WriteTimeout.
// The zero time means no deadline.
func (m *Module) writeDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if m.config.WriteTimeout > 0 {
		deadline = time.Now().Add(m.config.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}
