// Package config loads, normalizes, and validates clipcraft configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPCRAFT_SERVICE_URL. The Config type centralizes every knob the CLI and the
// edit orchestrator need, so the processing service endpoint, polling policy,
// per-operation parameter defaults, and local directories are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
