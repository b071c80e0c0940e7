// Package plugin provides connection configuration for Module.
//
// The host launches each plugin with the port to dial and a connection id;
// parsing them out of flags or the environment is left to the caller.
package plugin

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 4040
	DefaultPath         = "/"
	DefaultConnectionID = "development"
	DefaultWriteTimeout = 10 * time.Second
	DefaultDrainTimeout = 5 * time.Second
)

// Config describes how a Module reaches its host.
type Config struct {
	Host string `validate:"required,hostname|ip"`
	Port int    `validate:"min=1,max=65535"`
	Path string `validate:"omitempty,startswith=/"`

	// ConnectionID disambiguates several instances of a plugin talking to
	// the same host. DefaultConnectionID is sent when it is empty.
	ConnectionID string `validate:"max=256"`

	// RetryAttempts is the number of extra dial attempts after the first one
	// fails. Zero disables retries.
	RetryAttempts int           `validate:"min=0"`
	RetryDelay    time.Duration `validate:"min=0"`

	WriteTimeout time.Duration `validate:"min=0"`
	DrainTimeout time.Duration `validate:"min=0"`

	// ResetOnQuery clears the callback registry before each top-level query
	// is answered. Ids from earlier menus stop resolving once it is set.
	// Each query resets from its own goroutine, so when two top-level queries
	// overlap the later one can invalidate ids the earlier one just sent.
	ResetOnQuery bool
}

// DefaultConfig returns the configuration used when the host supplies nothing.
func DefaultConfig() Config {
	return Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		Path:         DefaultPath,
		RetryDelay:   time.Second,
		WriteTimeout: DefaultWriteTimeout,
		DrainTimeout: DefaultDrainTimeout,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid plugin config: %w", err)
	}
	return nil
}

// Endpoint returns the WebSocket URL of the host.
func (c Config) Endpoint() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.Path,
	}
	return u.String()
}

// connectionID returns the id sent with every frame.
func (c Config) connectionID() string {
	if c.ConnectionID == "" {
		return DefaultConnectionID
	}
	return c.ConnectionID
}
