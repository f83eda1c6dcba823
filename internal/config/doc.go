// Package config loads, normalizes, and validates mediacat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIACAT_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need, so library directories, the OpenLibrary endpoint, and scanner
// settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
