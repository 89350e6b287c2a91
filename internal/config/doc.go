// Package config defines the settings of the face-sentry process and provides
// helpers to load, validate and save them in YAML format.
//
// Validate fills every unset field with its default, so callers can rely on
// non-zero durations and pin names after a successful Load.
package config
