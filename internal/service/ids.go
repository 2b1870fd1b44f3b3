package service

import (
	"strings"

	"github.com/google/uuid"
)

// tokenLength matches the short random suffixes of the seeded identifiers.
const tokenLength = 9

// RandomToken returns a short random token derived from a UUIDv4.
func RandomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}

// uniqueID draws tokens until prefix+token is not taken.
func uniqueID(prefix string, next func() string, taken func(string) bool) string {
	for {
		id := prefix + next()
		if !taken(id) {
			return id
		}
	}
}
