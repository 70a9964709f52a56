package keyvault

import (
	"fmt"
	"strings"
)

// requireName validates an object name client-side before any request
// is sent.
func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: object name cannot be empty", ErrMalformedInput)
	}
	if strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("%w: object name %q contains reserved URL characters", ErrMalformedInput, name)
	}
	return nil
}

// requireValue validates a required request field client-side.
func requireValue(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrMalformedInput, field)
	}
	return nil
}
