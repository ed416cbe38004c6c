// Package config loads the broker's YAML configuration and the client's
// TOML configuration, with ${VAR} environment expansion on the broker side.
package config
