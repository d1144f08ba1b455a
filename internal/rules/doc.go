// Package rules implements the deterministic keyword and pattern based
// tagger that runs before any model call.
//
// Extraction is a pure function of the product text and the current schema
// snapshot: ordered category signals are tested against the title and handle
// first, then the full text; strength, ratio, capacity, and flavor patterns
// are matched independently; and every candidate tag is filtered to the
// schema vocabulary before being returned.
package rules
