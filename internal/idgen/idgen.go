// Package idgen provides short, URL-safe identifiers for vault events.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// EventPrefix is prepended to every event identifier.
const EventPrefix = "evt-"

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 16
)

// Event returns a new event identifier.
func Event() (string, error) {
	return WithPrefix(EventPrefix)
}

// WithPrefix returns a new identifier with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
