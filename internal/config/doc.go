// Package config loads, normalizes, and validates Snapship configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SNAPSHIP_UPLOAD_URL. The Config type centralizes every knob the daemon and
// CLI need, allowing watch/archive directories and the upload endpoint to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
