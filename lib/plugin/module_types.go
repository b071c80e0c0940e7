// Package plugin provides types and options for the Module functionality.
//
// This file contains the Module definition and the options used to build one.
package plugin

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Module is a plugin's connection to the Spotter host. It owns the socket, the
// callback registry, and the router that answers host requests.
type Module struct {
	plugin    Plugin
	config    Config
	logger    *slog.Logger
	dialer    *websocket.Dialer
	callbacks *Callbacks

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	listening    atomic.Bool
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	activeJobs     sync.WaitGroup
	activeJobCount atomic.Int64
}

type moduleOptions struct {
	logger    *slog.Logger
	dialer    *websocket.Dialer
	callbacks *Callbacks
}

// ModuleOption configures a Module.
type ModuleOption func(*moduleOptions)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) ModuleOption {
	return func(o *moduleOptions) {
		o.logger = logger
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(dialer *websocket.Dialer) ModuleOption {
	return func(o *moduleOptions) {
		o.dialer = dialer
	}
}

// WithCallbacks supplies the registry the module maps options into.
// A fresh registry is created per module otherwise.
func WithCallbacks(callbacks *Callbacks) ModuleOption {
	return func(o *moduleOptions) {
		o.callbacks = callbacks
	}
}
