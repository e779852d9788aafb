package http

import (
	"strings"
)

// normalizeBody lowercases and trims s after dropping control characters
// other than tab and line breaks.
func normalizeBody(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(strings.TrimSpace(s))
}
