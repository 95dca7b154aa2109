package utils

import (
	"fmt"
	"regexp"
)

var (
	// Base name: alphanumeric, dashes and underscores, max 128 chars
	baseNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

	// Cache pattern: printable key characters plus the * wildcard
	cachePatternPattern = regexp.MustCompile(`^[a-zA-Z0-9:_.*/-]{1,256}$`)

	// UUID: standard format with dashes
	uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// ValidateBaseName validates the base name shared by every variant of an image
// Returns error if invalid, nil if valid
func ValidateBaseName(name string) error {
	if name == "" {
		return fmt.Errorf("base name cannot be empty")
	}
	if !baseNamePattern.MatchString(name) {
		return fmt.Errorf("invalid base name: must be alphanumeric with optional dashes and underscores, max 128 chars")
	}
	return nil
}

// ValidatePattern validates a cache invalidation glob
// Returns error if invalid, nil if valid
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if !cachePatternPattern.MatchString(pattern) {
		return fmt.Errorf("invalid pattern: only key characters and * are allowed")
	}
	return nil
}

// ValidateUUID validates UUID format
// Returns error if invalid, nil if valid
func ValidateUUID(uuid string) error {
	if uuid == "" {
		return fmt.Errorf("UUID cannot be empty")
	}
	if !uuidPattern.MatchString(uuid) {
		return fmt.Errorf("invalid UUID format")
	}
	return nil
}
