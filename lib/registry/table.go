// Package registry stores callbacks under ephemeral string ids.
//
// A Table hands out a fresh id for every registration and never reuses one, so
// each entry has exactly one writer. Entries are immutable after insertion.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/snowmerak/spotter.go/lib/protocol"
)

// ErrNotFound is returned by Lookup when no entry exists for an id.
var ErrNotFound = errors.New("registry: id not found")

// maxRedraws bounds how many times Register draws again after a collision.
const maxRedraws = 8

// IDSource produces identifiers for new entries.
type IDSource func() string

type tableConfig struct {
	ids IDSource
}

// TableOption configures a Table.
type TableOption func(*tableConfig)

// WithIDSource replaces the default id generator (protocol.NewID).
// The source must not repeat ids within the lifetime of the table; Register
// panics once maxRedraws redraws in a row all collide.
func WithIDSource(src IDSource) TableOption {
	return func(c *tableConfig) {
		if src != nil {
			c.ids = src
		}
	}
}

// Table maps generated ids to values of type T.
type Table[T any] struct {
	ids     IDSource
	entries map[string]T
	mu      sync.RWMutex
}

// NewTable creates an empty table.
func NewTable[T any](opts ...TableOption) *Table[T] {
	cfg := tableConfig{ids: protocol.NewID}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Table[T]{
		ids:     cfg.ids,
		entries: make(map[string]T),
	}
}

// Register stores v under a fresh id and returns the id.
// It panics if the id source keeps returning live ids.
func (t *Table[T]) Register(v T) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A colliding id would silently replace a live callback; draw again instead.
	id := t.ids()
	for redraws := 0; ; redraws++ {
		if _, exists := t.entries[id]; !exists {
			break
		}
		if redraws == maxRedraws {
			panic(fmt.Sprintf("registry: id source repeated live id %q %d times", id, maxRedraws+1))
		}
		id = t.ids()
	}

	t.entries[id] = v
	return id
}

// Lookup returns the value registered under id.
func (t *Table[T]) Lookup(id string) (T, error) {
	t.mu.RLock()
	v, ok := t.entries[id]
	t.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return v, nil
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset drops every entry. Ids handed out before the call stop resolving.
func (t *Table[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]T)
}
