// Package config handles configuration loading and management for hitscript.
//
// It provides functionality for:
//   - Loading configuration from JSON or YAML files
//   - Default configuration values
//   - Named environments shared by every fixture
package config
