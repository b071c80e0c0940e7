package protocol

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 128-bit identifier rendered as 32 hex characters.
// It is used for callback ids and for correlation ids generated by hosts.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		id = uuid.New()
	}

	return strings.ReplaceAll(id.String(), "-", "")
}
