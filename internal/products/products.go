package products

import (
	"strings"
)

// Option is one variant option name/value pair.
type Option struct {
	Name  string
	Value string
}

// Record is an immutable product input. Handle uniquely identifies the
// product within a run; Title is required. Records carry at most three
// variant option pairs plus any extra variant values folded into the text.
type Record struct {
	Handle      string
	Title       string
	Description string
	Options     []Option

	// VariantValues holds option values from additional variant rows of the
	// same handle, so strength and size variants contribute to extraction.
	VariantValues []string
}

// TitleText returns the title plus handle, the high-signal text scanned
// first for category detection.
func (r Record) TitleText() string {
	return strings.TrimSpace(r.Title + " " + r.Handle)
}

// CombinedText returns all product text joined for full-text matching.
func (r Record) CombinedText() string {
	parts := make([]string, 0, 4+len(r.Options)+len(r.VariantValues))
	parts = append(parts, r.Title, r.Handle, r.Description)
	for _, opt := range r.Options {
		parts = append(parts, opt.Name, opt.Value)
	}
	parts = append(parts, r.VariantValues...)
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			joined = append(joined, trimmed)
		}
	}
	return strings.Join(joined, " ")
}
