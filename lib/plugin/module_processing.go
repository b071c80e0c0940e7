// Package plugin provides message listening and processing functionality for Module.
//
// This file contains the receive loop that reads frames from the host and the
// router that dispatches each decoded request to its handler.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/snowmerak/spotter.go/lib/protocol"
)

// Listen connects to the host, sends the pluginReady handshake, and serves
// requests until ctx is cancelled, Shutdown is called, or the host closes the
// socket. It may be called once per Module.
//
// A failed connection is logged and reported as ErrConnect. Shutdown and a
// normal close by the host return nil.
func (m *Module) Listen(ctx context.Context) error {
	if !m.listening.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}

	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	m.setConn(conn)
	defer m.closeConn(conn)

	// The handshake goes out before the first read so it always precedes any reply.
	if err := m.sendReady(ctx); err != nil {
		return fmt.Errorf("failed to send ready signal: %w", err)
	}

	// jobCtx is handed to every request handler and outlives a graceful shutdown
	// until the drain finishes.
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
		case <-m.shutdownChan:
		case <-stopWatch:
			return
		}
		// Unblock ReadMessage without closing the socket so in-flight replies can still be written.
		_ = conn.SetReadDeadline(time.Now())
	}()

	readErr := m.readLoop(jobCtx, conn)

	switch {
	case ctx.Err() != nil:
		m.drain()
		return ctx.Err()
	case m.IsShutdown():
		m.logger.Info("shutting down, waiting for active requests", "active", m.getActiveJobCount())
		m.drain()
		return nil
	case websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		m.logger.Info("host closed the connection")
		cancelJobs()
		m.drain()
		return nil
	default:
		m.logger.Error("connection lost", "error", readErr)
		cancelJobs()
		m.drain()
		return fmt.Errorf("failed to read frame: %w", readErr)
	}
}

// readLoop forwards text frames to the router until a read fails.
// Each frame is processed on its own goroutine, so replies may leave out of order.
func (m *Module) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if messageType != websocket.TextMessage {
			m.logger.Debug("ignoring non-text frame", "frame_type", messageType)
			continue
		}

		m.activeJobs.Add(1)
		m.activeJobCount.Add(1)
		go func(frame []byte) {
			defer func() {
				m.activeJobs.Done()
				m.activeJobCount.Add(-1)
			}()
			m.processMessage(ctx, frame)
		}(data)
	}
}

// drain waits for active requests, giving up after Config.DrainTimeout.
func (m *Module) drain() {
	done := make(chan struct{})
	go func() {
		m.activeJobs.Wait()
		close(done)
	}()

	timeout := m.config.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}

	select {
	case <-done:
	case <-time.After(timeout):
		m.logger.Warn("drain timeout reached", "active", m.getActiveJobCount())
	}
}

// processMessage decodes one frame and routes it. Frames that cannot be
// decoded are logged and dropped; the connection stays up.
func (m *Module) processMessage(ctx context.Context, frame []byte) {
	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			m.logger.Debug("ignoring unknown message", "error", err)
		} else {
			m.logger.Warn("dropping frame", "error", err, "size", len(frame))
		}
		return
	}

	// The request context ends when its handler returns.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	switch r := req.(type) {
	case protocol.OpenSpotterRequest:
		m.handleOpen(reqCtx)
	case protocol.SaveSuggestionRequest:
		m.handleSaveSuggestion(reqCtx, r)
	case protocol.QueryRequest:
		m.handleQuery(reqCtx, r)
	case protocol.OptionQueryRequest:
		m.handleOptionQuery(reqCtx, r)
	case protocol.ExecActionRequest:
		m.handleExecAction(reqCtx, r)
	default:
		m.logger.Debug("no route for request", "type", req.Type())
	}
}
