package chat

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxIdentifierLength bounds room and user identifiers.
const MaxIdentifierLength = 64

var validate = validator.New()

// ValidateID checks that a room or user identifier is usable as a key segment.
func ValidateID(id string) error {
	if err := validate.Var(id, fmt.Sprintf("required,max=%d,printascii,excludesall=:*?[]", MaxIdentifierLength)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}
