package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is a message sent from the host to the plugin.
// The set of implementations is closed; switch on the concrete type to handle one.
type Request interface {
	Type() RequestType
	request()
}

// Correlated is implemented by requests that carry a correlation id.
type Correlated interface {
	Request
	CorrelationID() string
}

// QueryRequest carries the free-text query typed into the host's search field.
type QueryRequest struct {
	ID    string `json:"id" validate:"required" jsonschema:"required"`
	Query string `json:"query"`
}

// OptionQueryRequest carries a query scoped to a previously mapped option.
type OptionQueryRequest struct {
	ID        string `json:"id" validate:"required" jsonschema:"required"`
	OnQueryID string `json:"onQueryId" validate:"required" jsonschema:"required"`
	Query     string `json:"query"`
}

// ExecActionRequest asks the plugin to run a previously mapped action.
type ExecActionRequest struct {
	ID       string `json:"id" validate:"required" jsonschema:"required"`
	ActionID string `json:"actionId" validate:"required" jsonschema:"required"`
}

// OpenSpotterRequest notifies the plugin that the host UI has been opened.
type OpenSpotterRequest struct{}

// SaveSuggestionRequest forwards an opaque suggestion path to be persisted.
type SaveSuggestionRequest struct {
	Path string `json:"mlGlobalActionPath"`
}

func (QueryRequest) Type() RequestType          { return RequestTypeQuery }
func (OptionQueryRequest) Type() RequestType    { return RequestTypeOptionQuery }
func (ExecActionRequest) Type() RequestType     { return RequestTypeExecAction }
func (OpenSpotterRequest) Type() RequestType    { return RequestTypeOpenSpotter }
func (SaveSuggestionRequest) Type() RequestType { return RequestTypeSaveSuggestion }

func (QueryRequest) request()          {}
func (OptionQueryRequest) request()    {}
func (ExecActionRequest) request()     {}
func (OpenSpotterRequest) request()    {}
func (SaveSuggestionRequest) request() {}

func (r QueryRequest) CorrelationID() string       { return r.ID }
func (r OptionQueryRequest) CorrelationID() string { return r.ID }
func (r ExecActionRequest) CorrelationID() string  { return r.ID }

// envelope is used to peek at the type tag before decoding the full message.
type envelope struct {
	Type string `json:"type"`
}

// DecodeRequest decodes a single text frame received from the host.
//
// It returns ErrMalformedFrame if the frame is not a JSON object, ErrUnknownType
// if the type tag is not recognised, and ErrInvalidMessage if a required field
// is missing. Callers are expected to log and drop the frame on any error.
func DecodeRequest(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var req Request
	switch RequestType(env.Type) {
	case RequestTypeQuery:
		var r QueryRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		req = r
	case RequestTypeOptionQuery:
		var r OptionQueryRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		req = r
	case RequestTypeExecAction:
		var r ExecActionRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		req = r
	case RequestTypeOpenSpotter:
		req = OpenSpotterRequest{}
	case RequestTypeSaveSuggestion:
		var r SaveSuggestionRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		req = r
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// EncodeRequest encodes a request the way a host sends it.
func EncodeRequest(req Request) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidMessage)
	}
	return marshalTagged(string(req.Type()), req)
}

// marshalTagged marshals v and adds the "type" key to the resulting object.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", tag, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to tag %s: %w", tag, err)
	}

	typeField, err := json.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal type tag: %w", err)
	}
	fields["type"] = typeField

	return json.Marshal(fields)
}
