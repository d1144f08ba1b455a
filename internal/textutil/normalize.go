package textutil

import "strings"

// Normalize lowercases a string and collapses runs of whitespace into
// single spaces.
func Normalize(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if lowered == "" {
		return ""
	}
	return strings.Join(strings.Fields(lowered), " ")
}
