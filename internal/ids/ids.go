// Package ids generates the short character identifiers.
package ids

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters kept from a random UUID.
const Length = 8

// MaxAttempts bounds the collision retries in NewUnique.
const MaxAttempts = 16

// ErrExhausted is returned when every candidate id collided.
var ErrExhausted = errors.New("ids: could not generate a unique id")

// New returns the first Length hex characters of a random UUIDv4.
func New() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:Length]
}

// NewUnique returns an id for which taken reports false.
func NewUnique(taken func(id string) bool) (string, error) {
	return newUnique(New, taken)
}

func newUnique(gen func() string, taken func(id string) bool) (string, error) {
	for i := 0; i < MaxAttempts; i++ {
		id := gen()
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// Valid reports whether s has the shape of a generated id.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
