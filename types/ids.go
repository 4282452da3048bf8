package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is the opaque identifier assigned to every persisted entity.
// It wraps a UUID string and is immutable after first persistence.
type ID string

// NewID generates a new UUID v4 and returns it as an ID.
// uuid.New() uses crypto/rand and only panics on system-level failures,
// so this never returns an error.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID parses and validates a string as a UUID, returning an ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", NewValidationError("id cannot be empty")
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", WrapError(ErrCodeValidationFailed, fmt.Sprintf("%q is not a valid id", s), err)
	}

	return ID(parsed.String()), nil
}

// Validate checks if the ID is a valid UUID.
func (id ID) Validate() error {
	if id == "" {
		return NewValidationError("id cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return WrapError(ErrCodeValidationFailed, fmt.Sprintf("%q is not a valid id", id), err)
	}

	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID has not been assigned yet.
func (id ID) IsZero() bool {
	return id == ""
}
