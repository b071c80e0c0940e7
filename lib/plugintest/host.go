// Package plugintest provides an in-process Spotter host for exercising plugins.
//
// Host accepts one WebSocket connection, waits for the pluginReady handshake,
// and sends requests whose replies are matched back by correlation id.
package plugintest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/snowmerak/spotter.go/lib/protocol"
)

// ErrClosed is returned when the plugin connection is gone.
var ErrClosed = errors.New("plugintest: connection closed")

// Host is a fake Spotter host backed by httptest.Server.
type Host struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn

	conn    *websocket.Conn
	writeMu sync.Mutex

	requestID atomic.Uint32

	pendingRequests map[string]chan protocol.OptionsResponse
	requestMutex    sync.Mutex

	readySignal chan protocol.PluginReady
	suggestions chan protocol.Suggestions

	frames   [][]byte
	framesMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewHost starts listening on a loopback port.
func NewHost() *Host {
	h := &Host{
		connCh:          make(chan *websocket.Conn, 1),
		pendingRequests: make(map[string]chan protocol.OptionsResponse),
		readySignal:     make(chan protocol.PluginReady, 1),
		suggestions:     make(chan protocol.Suggestions, 16),
		done:            make(chan struct{}),
	}
	h.server = httptest.NewServer(http.HandlerFunc(h.serveWS))
	return h
}

func (h *Host) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case h.connCh <- conn:
	default:
		// Only one plugin per host.
		_ = conn.Close()
	}
}

// Addr returns the host and port a plugin should dial.
func (h *Host) Addr() (string, int) {
	addr := h.server.Listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// Accept waits for the plugin to connect and send pluginReady.
// Requests must not be sent before Accept returns.
func (h *Host) Accept(ctx context.Context) (protocol.PluginReady, error) {
	select {
	case conn := <-h.connCh:
		h.conn = conn
		go h.handleMessages()
	case <-ctx.Done():
		return protocol.PluginReady{}, fmt.Errorf("waiting for plugin connection: %w", ctx.Err())
	}

	select {
	case ready := <-h.readySignal:
		return ready, nil
	case <-h.done:
		return protocol.PluginReady{}, ErrClosed
	case <-ctx.Done():
		return protocol.PluginReady{}, fmt.Errorf("waiting for ready signal: %w", ctx.Err())
	}
}

// Query sends onQueryRequest and waits for the correlated reply.
func (h *Host) Query(ctx context.Context, query string) (protocol.OptionsResponse, error) {
	id := h.generateRequestID()
	return h.call(ctx, id, protocol.QueryRequest{ID: id, Query: query})
}

// OptionQuery sends onOptionQueryRequest and waits for the correlated reply.
func (h *Host) OptionQuery(ctx context.Context, onQueryID, query string) (protocol.OptionsResponse, error) {
	id := h.generateRequestID()
	return h.call(ctx, id, protocol.OptionQueryRequest{ID: id, OnQueryID: onQueryID, Query: query})
}

// ExecAction sends execActionRequest and waits for the correlated reply.
func (h *Host) ExecAction(ctx context.Context, actionID string) (protocol.OptionsResponse, error) {
	id := h.generateRequestID()
	return h.call(ctx, id, protocol.ExecActionRequest{ID: id, ActionID: actionID})
}

// OpenSpotter notifies the plugin that the UI opened.
func (h *Host) OpenSpotter() error {
	return h.sendRequest(protocol.OpenSpotterRequest{})
}

// SaveSuggestion forwards a suggestion path to the plugin.
func (h *Host) SaveSuggestion(path string) error {
	return h.sendRequest(protocol.SaveSuggestionRequest{Path: path})
}

// SendRaw writes an arbitrary frame, for malformed or non-text input.
func (h *Host) SendRaw(messageType int, data []byte) error {
	if h.conn == nil {
		return ErrClosed
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return h.conn.WriteMessage(messageType, data)
}

// Suggestions delivers mlSuggestions frames pushed by the plugin.
func (h *Host) Suggestions() <-chan protocol.Suggestions {
	return h.suggestions
}

// Frames returns every frame received from the plugin, in arrival order.
func (h *Host) Frames() [][]byte {
	h.framesMu.Lock()
	defer h.framesMu.Unlock()

	out := make([][]byte, len(h.frames))
	copy(out, h.frames)
	return out
}

// Done is closed once the plugin connection ends.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Disconnect closes the plugin connection with a normal close frame.
func (h *Host) Disconnect() error {
	if h.conn == nil {
		return ErrClosed
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	h.writeMu.Lock()
	err := h.conn.WriteMessage(websocket.CloseMessage, msg)
	h.writeMu.Unlock()
	return err
}

// Close drops the connection and stops the server.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		if h.conn != nil {
			_ = h.conn.Close()
		}
		h.server.Close()
	})
}

func (h *Host) generateRequestID() string {
	return strconv.FormatUint(uint64(h.requestID.Add(1)), 10)
}

func (h *Host) sendRequest(req protocol.Request) error {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return err
	}
	return h.SendRaw(websocket.TextMessage, data)
}

func (h *Host) call(ctx context.Context, id string, req protocol.Request) (protocol.OptionsResponse, error) {
	responseChan := make(chan protocol.OptionsResponse, 1)

	h.requestMutex.Lock()
	h.pendingRequests[id] = responseChan
	h.requestMutex.Unlock()

	defer func() {
		h.requestMutex.Lock()
		delete(h.pendingRequests, id)
		h.requestMutex.Unlock()
	}()

	if err := h.sendRequest(req); err != nil {
		return protocol.OptionsResponse{}, fmt.Errorf("failed to write %s: %w", req.Type(), err)
	}

	select {
	case resp, ok := <-responseChan:
		if !ok {
			return protocol.OptionsResponse{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return protocol.OptionsResponse{}, ctx.Err()
	}
}

// handleMessages reads frames from the plugin until the connection ends.
func (h *Host) handleMessages() {
	defer close(h.done)
	defer func() {
		h.requestMutex.Lock()
		defer h.requestMutex.Unlock()
		for id, ch := range h.pendingRequests {
			close(ch)
			delete(h.pendingRequests, id)
		}
	}()

	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			return
		}

		h.framesMu.Lock()
		h.frames = append(h.frames, data)
		h.framesMu.Unlock()

		resp, err := protocol.DecodeResponse(data)
		if err != nil {
			continue
		}

		switch r := resp.(type) {
		case protocol.PluginReady:
			select {
			case h.readySignal <- r:
			default:
			}
		case protocol.OptionsResponse:
			h.requestMutex.Lock()
			ch, ok := h.pendingRequests[r.ID]
			h.requestMutex.Unlock()
			if ok {
				select {
				case ch <- r:
				default:
				}
			}
		case protocol.Suggestions:
			select {
			case h.suggestions <- r:
			default:
			}
		}
	}
}
