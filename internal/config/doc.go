// Package config loads, normalizes, and validates reelvault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates the device-mapping and
// duplicate-priority tables before any pipeline component runs. The Config
// type centralizes every knob the CLI needs so scanner exclusions, device
// lanes, and migration behavior are discovered in one pass and then threaded
// explicitly through the pipeline.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, compiled patterns, and clear validation errors.
package config
