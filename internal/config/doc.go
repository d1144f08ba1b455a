// Package config loads and validates the tagforge configuration file.
//
// Configuration is TOML. Load applies defaults, expands ~ in paths, pulls
// API keys from the environment when the file leaves them blank, and
// validates the result. Validation failures are fatal before any pipeline
// worker starts.
package config
