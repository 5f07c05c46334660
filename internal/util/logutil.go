package util

import "strings"

// TruncateForLog renders s as a single-line preview of at most limit runes.
// Runs of whitespace, newlines included, collapse to one space so prompt and
// response previews stay on one log line.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
