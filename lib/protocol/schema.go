package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns a JSON document mapping every type tag to the JSON Schema of
// its message body, split by direction.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
	}

	requests := map[string]*jsonschema.Schema{
		RequestTypeQuery.String():          reflector.Reflect(&QueryRequest{}),
		RequestTypeOptionQuery.String():    reflector.Reflect(&OptionQueryRequest{}),
		RequestTypeExecAction.String():     reflector.Reflect(&ExecActionRequest{}),
		RequestTypeOpenSpotter.String():    reflector.Reflect(&OpenSpotterRequest{}),
		RequestTypeSaveSuggestion.String(): reflector.Reflect(&SaveSuggestionRequest{}),
	}

	options := reflector.Reflect(&OptionsResponse{})
	responses := map[string]*jsonschema.Schema{
		ResponseTypePluginReady.String(): reflector.Reflect(&PluginReady{}),
		ResponseTypeQuery.String():       options,
		ResponseTypeOptionQuery.String(): options,
		ResponseTypeExecAction.String():  options,
		ResponseTypeSuggestions.String(): reflector.Reflect(&Suggestions{}),
	}

	doc := struct {
		Requests  map[string]*jsonschema.Schema `json:"requests"`
		Responses map[string]*jsonschema.Schema `json:"responses"`
	}{requests, responses}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal protocol schema: %w", err)
	}
	return data, nil
}
