// Package config loads, normalizes, and validates the TOML configuration
// that drives the sweeper daemon: watched directories, aria2 connection
// settings, downstream scanner integrations, and logging options.
package config
