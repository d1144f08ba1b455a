// Package textutil provides text normalization for the rule extractor's
// searchable-text pipeline.
package textutil
