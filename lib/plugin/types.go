// Package plugin provides the plugin-side adapter for the Spotter launcher.
// This file contains the domain types a plugin author works with: options,
// the callbacks attached to them, and the hooks the host drives.
package plugin

import (
	"context"
)

// Action runs when the user selects an option.
type Action func(ctx context.Context) (Result, error)

// QueryFunc answers a query typed while an option is focused.
type QueryFunc func(ctx context.Context, query string) (Result, error)

// Option is a single menu entry authored by the plugin.
// Options are built fresh on every query and never persisted.
type Option struct {
	Name      string
	Hint      string
	Icon      string
	IsHovered bool
	Priority  int
	Important bool

	// Action and OnQuery are optional. When nil, no id is sent to the host.
	Action  Action
	OnQuery QueryFunc
}

// Result is what an Action or QueryFunc hands back to the host.
// It is either terminal (Done) or a new option list (Next).
type Result struct {
	options  []Option
	complete bool
	terminal bool
}

// Done ends the interaction. true asks the host to close its menu, false
// signals an error or a cancellation.
func Done(ok bool) Result {
	return Result{complete: ok, terminal: true}
}

// Next keeps the interaction open with a new set of options.
func Next(options ...Option) Result {
	return Result{options: options}
}

// IsTerminal reports whether the result was built with Done.
func (r Result) IsTerminal() bool {
	return r.terminal
}

// Complete returns the flag passed to Done. It is false for Next results.
func (r Result) Complete() bool {
	return r.complete
}

// Options returns the options passed to Next. It is nil for Done results.
func (r Result) Options() []Option {
	return r.options
}

// Plugin is the contract a concrete plugin implements.
// OnQuery answers the top-level query typed into the host's search field.
type Plugin interface {
	OnQuery(ctx context.Context, query string) ([]Option, error)
}

// OpenHandler is implemented by plugins that want to know when the host UI opens.
type OpenHandler interface {
	OnOpen(ctx context.Context)
}

// SuggestionSaver is implemented by plugins that persist ML suggestion paths.
type SuggestionSaver interface {
	SaveSuggestion(ctx context.Context, path string)
}
