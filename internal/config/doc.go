// Package config loads, normalizes, and validates Baker configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BAKER_USERNAME and BAKER_TEMPLATE_PATH. The Config type centralizes every
// knob the CLI needs so destination roots, the editing template location, and
// copy behavior are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
