// Package config loads, normalizes, and validates xmlwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// LOG_LEVEL and LOG_DIR. The Config type centralizes every knob the daemon and
// CLI need, so the watched directory, destination directory, and logging
// outputs are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
