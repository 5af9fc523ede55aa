// Package id generates prefixed, URL-safe identifiers for persisted entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the entities this server creates.
const (
	PrefixActivity = "act"
	PrefixAward    = "award"
	PrefixComment  = "cmt"
	PrefixRule     = "rule"
	PrefixToken    = "token"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "award-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Only use it where failure should crash the program, such as catalog seeding at startup.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
