package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect is returned when the socket to the host cannot be established.
	ErrConnect = errors.New("plugin: failed to connect to host")
	// ErrNotConnected is returned when sending without an active socket.
	ErrNotConnected = errors.New("plugin: not connected")
	// ErrAlreadyListening is returned when Listen is called more than once.
	ErrAlreadyListening = errors.New("plugin: module already listening")
	// ErrMissingHandler is returned when a callback id does not resolve.
	ErrMissingHandler = errors.New("plugin: missing handler")
)

// CallbackKind names one of the two callback namespaces.
type CallbackKind string

const (
	CallbackAction CallbackKind = "action"
	CallbackQuery  CallbackKind = "query"
)

// CallbackError reports that an id did not resolve in the expected namespace.
// It unwraps to ErrMissingHandler.
type CallbackError struct {
	Kind CallbackKind
	ID   string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback %q: %v", e.Kind, e.ID, e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrMissingHandler, e.Err}
}

// HookError wraps a failure or panic raised by plugin-supplied code.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
