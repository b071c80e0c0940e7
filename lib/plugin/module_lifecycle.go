// Package plugin provides Module lifecycle management functionality.
//
// This file contains Module creation and shutdown management.
package plugin

import (
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"
)

// New creates a Module that will serve p once Listen is called.
func New(p Plugin, cfg Config, opts ...ModuleOption) (*Module, error) {
	if p == nil {
		return nil, errors.New("plugin: nil plugin")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := moduleOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.dialer == nil {
		o.dialer = websocket.DefaultDialer
	}
	if o.callbacks == nil {
		o.callbacks = NewCallbacks()
	}

	return &Module{
		plugin:       p,
		config:       cfg,
		logger:       o.logger.With("connection_id", cfg.connectionID()),
		dialer:       o.dialer,
		callbacks:    o.callbacks,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Shutdown stops reading new requests. Requests already being handled get
// up to Config.DrainTimeout to reply before Listen returns.
func (m *Module) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
	})
}

// IsShutdown returns true once Shutdown has been called.
func (m *Module) IsShutdown() bool {
	select {
	case <-m.shutdownChan:
		return true
	default:
		return false
	}
}

// Connected reports whether the module currently holds a socket to the host.
func (m *Module) Connected() bool {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	return m.conn != nil
}

// Callbacks returns the registry options are mapped into.
func (m *Module) Callbacks() *Callbacks {
	return m.callbacks
}

// Reset clears the callback registry. Ids already sent to the host stop
// resolving, so the host must re-query before executing anything it cached.
func (m *Module) Reset() {
	m.callbacks.Reset()
	m.logger.Debug("callback registry reset")
}

// getActiveJobCount returns the number of requests currently being handled.
func (m *Module) getActiveJobCount() int64 {
	return m.activeJobCount.Load()
}
