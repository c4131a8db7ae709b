package homie

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID  = errors.New("invalid identifier")
	ErrEmptyName  = errors.New("empty name")
	ErrNilParent  = errors.New("nil parent")
	ErrInvalidMac = errors.New("invalid mac address")
)

// Validates that an ID conforms to the Homie standard.
// Upper case letters are folded to lower case.

func validate(inputId string) (string, error) {
	if len(inputId) < 1 {
		return "", fmt.Errorf("%w: null identifier", ErrInvalidID)
	}

	bytes := []byte(inputId)

	if bytes[0] == '-' {
		return "", fmt.Errorf("%w: %q may not begin with '-'", ErrInvalidID, inputId)
	}

	for i, b := range bytes {
		if b >= 'A' && b <= 'Z' {
			bytes[i] = b + 'a' - 'A'
		} else if (b < 'a' || b > 'z') &&
			(b < '0' || b > '9') &&
			b != '-' {
			return "", fmt.Errorf("%w: character %c (%d) in %q", ErrInvalidID, b, b, inputId)
		}
	}

	return string(bytes), nil
}

func validateName(name string) error {
	if len(name) < 1 {
		return ErrEmptyName
	}
	return nil
}
