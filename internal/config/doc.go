// Package config loads, normalizes, and validates subtitler configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBTITLER_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need so directories, runtime settings and caption defaults are resolved
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
