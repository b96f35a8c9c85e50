package config

import (
	"regexp"
	"strings"
)

const DefaultRunLabel = "run"

var (
	validLabelRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	leadingDash  = regexp.MustCompile(`^-+`)
	trailingDash = regexp.MustCompile(`-+$`)
)

// NormalizeRunLabel converts a user-provided run label into a safe
// identifier for filenames and history lookups:
//   - Lowercase, max 64 chars
//   - Only [a-z0-9_-] allowed
//   - Invalid chars replaced with "-"
//   - Leading/trailing dashes stripped
//   - Empty result defaults to "run"
func NormalizeRunLabel(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultRunLabel
	}

	lower := strings.ToLower(trimmed)
	if validLabelRe.MatchString(lower) {
		return lower
	}

	result := invalidChars.ReplaceAllString(lower, "-")
	result = leadingDash.ReplaceAllString(result, "")
	result = trailingDash.ReplaceAllString(result, "")

	if len(result) > 64 {
		result = result[:64]
	}

	if result == "" {
		return DefaultRunLabel
	}
	return result
}
