// Package protocol defines the messages exchanged between a Spotter host and a plugin.
//
// This file contains the message type tags and the wire representation of a menu option.
package protocol

// RequestType tags a message sent from the host to the plugin.
type RequestType string

const (
	RequestTypeQuery          RequestType = "onQueryRequest"       // Top-level query typed by the user
	RequestTypeOptionQuery    RequestType = "onOptionQueryRequest" // Query scoped to an option's onQuery callback
	RequestTypeExecAction     RequestType = "execActionRequest"    // Run an option's action callback
	RequestTypeOpenSpotter    RequestType = "onOpenSpotter"        // Host UI opened, no reply
	RequestTypeSaveSuggestion RequestType = "mlSaveSuggestion"     // Persist a suggestion path, no reply
)

// String returns the wire tag.
func (t RequestType) String() string {
	return string(t)
}

// ExpectsReply reports whether the host waits for a correlated response.
func (t RequestType) ExpectsReply() bool {
	switch t {
	case RequestTypeQuery, RequestTypeOptionQuery, RequestTypeExecAction:
		return true
	default:
		return false
	}
}

// ResponseType tags a message sent from the plugin to the host.
type ResponseType string

const (
	ResponseTypePluginReady ResponseType = "pluginReady"
	ResponseTypeQuery       ResponseType = "onQueryResponse"
	ResponseTypeOptionQuery ResponseType = "onOptionQueryResponse"
	ResponseTypeExecAction  ResponseType = "execActionResponse"
	ResponseTypeSuggestions ResponseType = "mlSuggestions"
)

// String returns the wire tag.
func (t ResponseType) String() string {
	return string(t)
}

// ReplyTo returns the response tag that answers the given request tag.
// The second return value is false for requests that are not answered.
func ReplyTo(t RequestType) (ResponseType, bool) {
	switch t {
	case RequestTypeQuery:
		return ResponseTypeQuery, true
	case RequestTypeOptionQuery:
		return ResponseTypeOptionQuery, true
	case RequestTypeExecAction:
		return ResponseTypeExecAction, true
	default:
		return "", false
	}
}

// MappedOption is the wire form of a menu option.
// Callbacks are replaced by the ids they were registered under; an id is
// present only when the source option carried the matching callback.
// isHovered, priority and important are always sent, zero values included.
type MappedOption struct {
	Name      string `json:"name" jsonschema:"required"`
	Hint      string `json:"hint,omitempty"`
	Icon      string `json:"icon,omitempty"`
	IsHovered bool   `json:"isHovered"`
	Priority  int    `json:"priority"`
	Important bool   `json:"important"`
	ActionID  string `json:"actionId,omitempty"`
	OnQueryID string `json:"onQueryId,omitempty"`
}
