// Package config provides YAML-based configuration for Polaris with
// defaults, validation, and environment variable overrides.
//
// Configuration loads in three stages: defaults, YAML file, then
// POLARIS_* environment variables, with later stages taking precedence.
// The final configuration is validated before use and every field error
// is reported, not just the first.
package config
