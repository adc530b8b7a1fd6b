// Package config loads, normalizes, and validates tzbuild configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRAINZUTIL. The Config type centralizes every knob the CLI needs, so the
// content root, staging base, installer location, and history ledger are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
