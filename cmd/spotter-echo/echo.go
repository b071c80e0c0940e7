package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/snowmerak/spotter.go/lib/plugin"
)

// echoPlugin answers every query with the text it was given.
type echoPlugin struct {
	logger *slog.Logger
}

func newEchoPlugin(logger *slog.Logger) *echoPlugin {
	return &echoPlugin{logger: logger}
}

// OnQuery implements plugin.Plugin.
func (p *echoPlugin) OnQuery(ctx context.Context, query string) ([]plugin.Option, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return nil, nil
	}

	return []plugin.Option{
		{
			Name:      text,
			Hint:      "copy",
			Important: true,
			Action: func(ctx context.Context) (plugin.Result, error) {
				p.logger.Info("copied", "text", text)
				return plugin.Done(true), nil
			},
		},
		{
			Name: "Upper case",
			Hint: "type to transform",
			OnQuery: func(ctx context.Context, sub string) (plugin.Result, error) {
				if sub == "" {
					return plugin.Done(false), nil
				}
				upper := strings.ToUpper(sub)
				return plugin.Next(plugin.Option{
					Name: upper,
					Action: func(context.Context) (plugin.Result, error) {
						p.logger.Info("upper selected", "text", upper)
						return plugin.Done(true), nil
					},
				}), nil
			},
		},
	}, nil
}

// OnOpen implements plugin.OpenHandler.
func (p *echoPlugin) OnOpen(ctx context.Context) {
	p.logger.Debug("spotter opened")
}

// SaveSuggestion implements plugin.SuggestionSaver.
func (p *echoPlugin) SaveSuggestion(ctx context.Context, path string) {
	p.logger.Debug("suggestion saved", "path", path)
}
