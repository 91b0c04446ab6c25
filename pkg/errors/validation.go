package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a local file path supplied on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//
// "-" is accepted and means stdin or stdout.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// presetNameRegex matches preset names: lowercase words joined by - or _.
var presetNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidatePresetName validates a preset name from the config file, a flag,
// or a query parameter. Names are at most 64 characters.
func ValidatePresetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "preset name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "preset name too long (max 64 characters)")
	}
	if !presetNameRegex.MatchString(strings.ToLower(name)) {
		return New(ErrCodeInvalidInput, "invalid preset name: %q", name)
	}
	return nil
}

// ValidateDimensions checks that an image is non-empty and holds at most
// maxPixels pixels. A maxPixels of zero disables the size check.
func ValidateDimensions(width, height int, maxPixels int64) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidInput, "image has no pixels (%dx%d)", width, height)
	}
	if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
		return New(ErrCodeImageTooLarge, "image is %dx%d, limit is %d pixels", width, height, maxPixels)
	}
	return nil
}

// ValidateQuality checks a lossy encoder quality in [1, 100].
func ValidateQuality(q int) error {
	if q < 1 || q > 100 {
		return New(ErrCodeInvalidParams, "quality must be between 1 and 100, got %d", q)
	}
	return nil
}
