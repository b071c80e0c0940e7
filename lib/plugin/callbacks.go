// Package plugin provides the callback registry owned by a Module.
//
// This file contains Callbacks, which keeps actions and queries in two
// independent namespaces because they are invoked with different arguments.
package plugin

import (
	"context"

	"github.com/snowmerak/spotter.go/lib/registry"
)

// Callbacks maps ephemeral ids to the actions and queries attached to mapped options.
//
// Entries are never evicted unless Reset is called, so a long-running plugin
// that keeps rendering menus grows the registry without bound. Module.Reset
// and Config.ResetOnQuery are the two ways to reclaim it.
type Callbacks struct {
	actions *registry.Table[Action]
	queries *registry.Table[QueryFunc]
}

// NewCallbacks creates an empty registry. Options are passed to both namespaces.
func NewCallbacks(opts ...registry.TableOption) *Callbacks {
	return &Callbacks{
		actions: registry.NewTable[Action](opts...),
		queries: registry.NewTable[QueryFunc](opts...),
	}
}

// RegisterAction stores fn in the action namespace and returns its id.
func (c *Callbacks) RegisterAction(fn Action) string {
	return c.actions.Register(fn)
}

// RegisterQuery stores fn in the query namespace and returns its id.
func (c *Callbacks) RegisterQuery(fn QueryFunc) string {
	return c.queries.Register(fn)
}

// InvokeAction runs the action registered under id exactly once.
// Unknown ids, including query ids, fail with a *CallbackError.
func (c *Callbacks) InvokeAction(ctx context.Context, id string) (Result, error) {
	fn, err := c.actions.Lookup(id)
	if err != nil {
		return Result{}, &CallbackError{Kind: CallbackAction, ID: id, Err: err}
	}
	return callHook("action", func() (Result, error) { return fn(ctx) })
}

// InvokeQuery runs the query registered under id with the given text.
func (c *Callbacks) InvokeQuery(ctx context.Context, id, query string) (Result, error) {
	fn, err := c.queries.Lookup(id)
	if err != nil {
		return Result{}, &CallbackError{Kind: CallbackQuery, ID: id, Err: err}
	}
	return callHook("onQuery", func() (Result, error) { return fn(ctx, query) })
}

// Len returns the number of live actions and queries.
func (c *Callbacks) Len() (actions, queries int) {
	return c.actions.Len(), c.queries.Len()
}

// Reset drops every registered callback in both namespaces.
func (c *Callbacks) Reset() {
	c.actions.Reset()
	c.queries.Reset()
}
