// ABOUTME: Service configuration
// ABOUTME: Loads YAML, environment and flag settings through viper
// Package config loads rawstream settings.
//
// Precedence, highest first: command-line flags, RAWSTREAM_* environment
// variables (dots become underscores, e.g. RAWSTREAM_SERVER_PORT), the YAML
// config file, and the defaults from Default.
package config
