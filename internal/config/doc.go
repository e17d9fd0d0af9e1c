// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config file, environment variables and command
// line flags. Every setting has a default, so a run needs no configuration
// beyond the provider API key.
package config
