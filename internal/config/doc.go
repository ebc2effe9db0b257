// Package config loads, normalizes, and validates mesoprep configuration.
//
// It supplies rig defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and validates every field at load time so a malformed
// configuration fails at startup rather than mid-pipeline. The Config type
// centralizes every knob the CLI needs: acquisition and behavior-video roots,
// modality glob patterns, schema lists, and the watchdog transfer options.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and canonical enum values.
package config
