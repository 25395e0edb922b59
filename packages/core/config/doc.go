// Package config handles configuration loading and management for restfile.
//
// It provides functionality for:
//   - Loading configuration from .restfile.json / restfile.json files
//   - Default configuration values
//   - Merging file configuration with command-line overrides
package config
