package protocol

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata per type.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the required fields of a decoded request.
func Validate(req Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidMessage)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, req.Type(), err)
	}
	return nil
}
