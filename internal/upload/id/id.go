// Package id provides unique identifier generation for uploads.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix starts every upload ID.
const Prefix = "upl-"

// Generate creates a new unique upload ID.
// Format: upl-<uuid v4 without dashes>
// Example: upl-9f0c1c7e6a1b4c0f8e0d2b7a4c3e1f00
// The result is safe to use as a single path element.
func Generate() string {
	return Prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok || len(rest) != 32 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
