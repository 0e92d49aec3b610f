// Package config loads the management server configuration from a YAML
// file, applies defaults, and resolves secret values from the environment.
package config
