package utils

import (
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeShortCode normalizes a human-typed pass code: uppercase, with
// whitespace and common separators stripped
func NormalizeShortCode(code string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(code))
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for _, r := range cleaned {
		if r == '-' || r == ' ' || r == '.' {
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}

// IsValidShortCode performs basic short code validation after normalization
func IsValidShortCode(code string) bool {
	normalized := NormalizeShortCode(code)
	if len(normalized) < 6 || len(normalized) > 12 {
		return false
	}

	for _, r := range normalized {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}
