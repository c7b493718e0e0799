// Package config loads, normalizes, and validates imagededup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts and XDG_CACHE_HOME for the fingerprint cache), and reads TOML
// files. The Config type centralizes every knob the scan engine and CLI need;
// CLI flags are applied on top of a loaded Config before Validate runs again.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical modes, and clear validation errors.
package config
