// Package plugin provides request handlers for Module.
//
// This file contains one handler per request kind and the reply builder that
// turns a Result into an options response.
package plugin

import (
	"context"
	"errors"

	"github.com/snowmerak/spotter.go/lib/protocol"
)

func (m *Module) handleOpen(ctx context.Context) {
	h, ok := m.plugin.(OpenHandler)
	if !ok {
		return
	}
	if err := callNotify("onOpen", func() { h.OnOpen(ctx) }); err != nil {
		m.logger.Error("open hook failed", "error", err)
	}
}

func (m *Module) handleSaveSuggestion(ctx context.Context, req protocol.SaveSuggestionRequest) {
	s, ok := m.plugin.(SuggestionSaver)
	if !ok {
		m.logger.Debug("plugin does not save suggestions", "path", req.Path)
		return
	}
	if err := callNotify("saveSuggestion", func() { s.SaveSuggestion(ctx, req.Path) }); err != nil {
		m.logger.Error("save suggestion hook failed", "error", err, "path", req.Path)
	}
}

func (m *Module) handleQuery(ctx context.Context, req protocol.QueryRequest) {
	if m.config.ResetOnQuery {
		m.Reset()
	}

	options, err := callHook("onQuery", func() ([]Option, error) {
		return m.plugin.OnQuery(ctx, req.Query)
	})
	if err != nil {
		m.logger.Error("query hook failed", "request_id", req.ID, "error", err)
		m.reply(ctx, req, Done(false))
		return
	}

	m.reply(ctx, req, Next(options...))
}

func (m *Module) handleOptionQuery(ctx context.Context, req protocol.OptionQueryRequest) {
	result, err := m.callbacks.InvokeQuery(ctx, req.OnQueryID, req.Query)
	if err != nil {
		if errors.Is(err, ErrMissingHandler) {
			m.logger.Warn("dropping request for unknown callback",
				"type", req.Type(), "request_id", req.ID, "on_query_id", req.OnQueryID)
			return
		}
		m.logger.Error("option query failed", "request_id", req.ID, "on_query_id", req.OnQueryID, "error", err)
		result = Done(false)
	}

	m.reply(ctx, req, result)
}

func (m *Module) handleExecAction(ctx context.Context, req protocol.ExecActionRequest) {
	result, err := m.callbacks.InvokeAction(ctx, req.ActionID)
	if err != nil {
		if errors.Is(err, ErrMissingHandler) {
			m.logger.Warn("dropping request for unknown callback",
				"type", req.Type(), "request_id", req.ID, "action_id", req.ActionID)
			return
		}
		m.logger.Error("action failed", "request_id", req.ID, "action_id", req.ActionID, "error", err)
		result = Done(false)
	}

	m.reply(ctx, req, result)
}

// reply answers req. Terminal results send no options and their flag as
// complete; option lists are mapped into the registry and sent with
// complete=false.
func (m *Module) reply(ctx context.Context, req protocol.Correlated, result Result) {
	var (
		options  []protocol.MappedOption
		complete bool
	)
	if result.IsTerminal() {
		complete = result.Complete()
	} else {
		options = m.callbacks.Map(result.Options())
	}

	resp, err := protocol.NewOptionsResponse(req, options, complete, m.config.connectionID())
	if err != nil {
		m.logger.Error("failed to build response", "request_id", req.CorrelationID(), "error", err)
		return
	}

	if err := m.send(ctx, resp); err != nil {
		m.logger.Error("failed to send response",
			"type", resp.Type(), "request_id", req.CorrelationID(), "error", err)
	}
}
