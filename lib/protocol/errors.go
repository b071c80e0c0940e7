package protocol

import "errors"

var (
	// ErrMalformedFrame is returned when a frame is not valid JSON for its type.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	// ErrUnknownType is returned when a frame carries an unrecognised type tag.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrInvalidMessage is returned when a message is missing a required field.
	ErrInvalidMessage = errors.New("protocol: invalid message")
)
