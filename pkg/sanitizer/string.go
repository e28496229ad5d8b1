package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims leading/trailing whitespace and collapses internal
// whitespace runs to single spaces.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeNotes cleans free-text reservation notes.
func NormalizeNotes(notes string) string {
	return TrimAndNormalize(notes)
}

// NormalizeID trims an external identifier (client, provider, service).
// IDs are opaque strings; only surrounding whitespace is removed.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// NormalizeIdempotencyKey trims and lowercases an idempotency key so the
// same key sent with different casing dedupes to one record.
func NormalizeIdempotencyKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
