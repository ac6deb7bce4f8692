package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateDOI validates a DOI string for safety and basic shape.
// It rejects values that could be used for path traversal or URL injection
// when the DOI is interpolated into API request paths.
//
// The validation rules are intentionally conservative:
//   - No empty values
//   - No control characters
//   - No whitespace
//   - No path traversal sequences (.., backslashes)
//   - Maximum length of 256 characters
//
// Pattern-specific checks (registered DOI prefixes, arXiv identifiers) are
// done separately by the reference package.
func ValidateDOI(doi string) error {
	if doi == "" {
		return New(ErrCodeInvalidDOI, "DOI cannot be empty")
	}

	if len(doi) > 256 {
		return New(ErrCodeInvalidDOI, "DOI too long (max 256 characters)")
	}

	for _, r := range doi {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidDOI, "DOI contains invalid characters: %q", doi)
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"\x00", // Null byte
		"\\",   // Backslash
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(doi, pattern) {
			return New(ErrCodeInvalidDOI, "DOI contains invalid sequence: %q", pattern)
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme")
	}

	return nil
}

// ValidatePath validates an output file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// registryNameRegex matches package names as they appear in registry indexes.
var registryNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateRegistryPackageName validates a package name scraped from a
// registry index page. Scraped text that fails this check indicates a broken
// selector rather than a legitimate package.
func ValidateRegistryPackageName(name string) error {
	if name == "" {
		return New(ErrCodeScrapeFailed, "scraped package name is empty")
	}

	if !registryNameRegex.MatchString(name) {
		return New(ErrCodeScrapeFailed, "scraped package name is malformed: %q", name)
	}

	return nil
}
