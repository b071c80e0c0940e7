// Package plugin provides function-based hook implementations.
// This file contains Hooks, which adapts plain functions to the Plugin,
// OpenHandler and SuggestionSaver interfaces.
package plugin

import (
	"context"
)

// Hooks implements Plugin, OpenHandler and SuggestionSaver with optional funcs.
// A nil OnQueryFunc answers every top-level query with no options.
type Hooks struct {
	OnQueryFunc        func(ctx context.Context, query string) ([]Option, error)
	OnOpenFunc         func(ctx context.Context)
	SaveSuggestionFunc func(ctx context.Context, path string)
}

var (
	_ Plugin          = Hooks{}
	_ OpenHandler     = Hooks{}
	_ SuggestionSaver = Hooks{}
)

// OnQuery implements Plugin.
func (h Hooks) OnQuery(ctx context.Context, query string) ([]Option, error) {
	if h.OnQueryFunc == nil {
		return nil, nil
	}
	return h.OnQueryFunc(ctx, query)
}

// OnOpen implements OpenHandler.
func (h Hooks) OnOpen(ctx context.Context) {
	if h.OnOpenFunc != nil {
		h.OnOpenFunc(ctx)
	}
}

// SaveSuggestion implements SuggestionSaver.
func (h Hooks) SaveSuggestion(ctx context.Context, path string) {
	if h.SaveSuggestionFunc != nil {
		h.SaveSuggestionFunc(ctx, path)
	}
}
