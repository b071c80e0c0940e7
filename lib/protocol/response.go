package protocol

import (
	"encoding/json"
	"fmt"
)

// Response is a message sent from the plugin to the host.
type Response interface {
	Type() ResponseType
	response()
}

// PluginReady is the handshake sent once, right after the socket connects.
type PluginReady struct {
	ConnectionID string `json:"connectionId"`
}

// OptionsResponse answers a correlated request with a new option list or a
// terminal flag. Kind selects which of the three reply tags is sent.
type OptionsResponse struct {
	Kind         ResponseType   `json:"-"`
	ID           string         `json:"id" jsonschema:"required"`
	Options      []MappedOption `json:"options" jsonschema:"required"`
	Complete     bool           `json:"complete"`
	ConnectionID string         `json:"connectionId"`
}

// Suggestions pushes an ML suggestion path to the host.
type Suggestions struct {
	Path         string `json:"mlGlobalActionPath,omitempty"`
	ConnectionID string `json:"connectionId"`
}

func (PluginReady) Type() ResponseType       { return ResponseTypePluginReady }
func (r OptionsResponse) Type() ResponseType { return r.Kind }
func (Suggestions) Type() ResponseType       { return ResponseTypeSuggestions }

func (PluginReady) response()     {}
func (OptionsResponse) response() {}
func (Suggestions) response()     {}

// NewOptionsResponse builds the reply to req. A nil option slice is sent as an
// empty array so the host never sees "options": null.
func NewOptionsResponse(req Correlated, options []MappedOption, complete bool, connectionID string) (OptionsResponse, error) {
	kind, ok := ReplyTo(req.Type())
	if !ok {
		return OptionsResponse{}, fmt.Errorf("%w: %s is not answered", ErrInvalidMessage, req.Type())
	}
	if options == nil {
		options = []MappedOption{}
	}

	return OptionsResponse{
		Kind:         kind,
		ID:           req.CorrelationID(),
		Options:      options,
		Complete:     complete,
		ConnectionID: connectionID,
	}, nil
}

// EncodeResponse encodes a response as a JSON text frame including its type tag.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrInvalidMessage)
	}

	switch r := resp.(type) {
	case OptionsResponse:
		if _, ok := replyKinds[r.Kind]; !ok {
			return nil, fmt.Errorf("%w: options response without a reply kind", ErrInvalidMessage)
		}
		if r.Options == nil {
			r.Options = []MappedOption{}
		}
		return marshalTagged(string(r.Kind), r)
	default:
		return marshalTagged(string(resp.Type()), resp)
	}
}

var replyKinds = map[ResponseType]struct{}{
	ResponseTypeQuery:       {},
	ResponseTypeOptionQuery: {},
	ResponseTypeExecAction:  {},
}

// DecodeResponse decodes a frame sent by a plugin. Hosts and test harnesses use it.
func DecodeResponse(data []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	kind := ResponseType(env.Type)
	switch kind {
	case ResponseTypePluginReady:
		var r PluginReady
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		return r, nil
	case ResponseTypeQuery, ResponseTypeOptionQuery, ResponseTypeExecAction:
		var r OptionsResponse
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		r.Kind = kind
		return r, nil
	case ResponseTypeSuggestions:
		var r Suggestions
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
