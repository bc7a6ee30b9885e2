// Package agent holds the agent identifier used to key registrations.
package agent

import (
	"errors"
	"fmt"
)

// IDLength is the number of digits in an agent identifier.
const IDLength = 8

// ErrInvalidID is returned for identifiers that are not exactly 8 ASCII digits.
var ErrInvalidID = errors.New("invalid agent identifier: expected 8 digits")

// ID is a validated agent identifier (the agent's 8-digit phone number).
type ID string

// ParseID validates s and returns it as an ID.
func ParseID(s string) (ID, error) {
	if len(s) != IDLength {
		return "", fmt.Errorf("%w: got %d characters", ErrInvalidID, len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%w: non-digit at position %d", ErrInvalidID, i+1)
		}
	}
	return ID(s), nil
}

// IsValid reports whether s is a well-formed identifier.
func IsValid(s string) bool {
	_, err := ParseID(s)
	return err == nil
}

func (id ID) String() string {
	return string(id)
}
