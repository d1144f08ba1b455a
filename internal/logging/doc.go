// Package logging configures structured logging for tagforge.
//
// All components log through log/slog with a shared set of field keys so
// run output can be filtered by run, product handle, or pipeline component.
// Two output formats are supported: a compact console format for interactive
// use and JSON for log aggregation.
package logging
