package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random URL-safe identifier without dashes.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewPrefixedID returns "<prefix>-<uuid>", the shape used for user and notification ids.
func NewPrefixedID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
