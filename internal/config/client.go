// ABOUTME: Client-side configuration for the presence CLIs.
// ABOUTME: Loads TOML from the XDG config path with environment variable expansion.

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ClientConfig configures the presence-tui and presence-admin binaries.
type ClientConfig struct {
	Server   ClientServerConfig  `toml:"server"`
	Location LocationConfig      `toml:"location"`
	Logging  LoggingClientConfig `toml:"logging"`
}

// ClientServerConfig points the CLIs at the attendance service.
type ClientServerConfig struct {
	// URL is the HTTP base URL, e.g. "http://localhost:8080".
	URL string `toml:"url"`
	// WebsocketURL overrides the realtime endpoint; derived from URL when empty.
	WebsocketURL string `toml:"websocket_url"`
	// TokenPath overrides where the bearer token is stored.
	TokenPath string `toml:"token_path"`
}

// LocationConfig selects how the client acquires a position fix.
type LocationConfig struct {
	// Command is an external locator program printing
	// {"latitude":..,"longitude":..} on stdout.
	Command []string `toml:"command"`
	// Pinned uses a fixed coordinate instead of a device reading.
	Pinned    bool    `toml:"pinned"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// LoggingClientConfig holds CLI logging configuration.
type LoggingClientConfig struct {
	Level string `toml:"level"`
}

// DefaultClientConfigPath resolves $XDG_CONFIG_HOME/presence/config.toml.
func DefaultClientConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "presence", "config.toml")
}

// LoadClient reads client config from the given path, expanding ${VAR}
// environment references. A missing file yields defaults pointed at
// localhost.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	cfg.Server.URL = "http://localhost:8080"

	if path == "" {
		path = DefaultClientConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if _, err := url.Parse(c.Server.URL); err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if c.Location.Pinned && len(c.Location.Command) > 0 {
		return fmt.Errorf("location.pinned and location.command are mutually exclusive")
	}
	return nil
}

// RealtimeEndpoint returns the websocket URL for the attendance channel,
// deriving ws(s):// from the HTTP base URL when not set explicitly.
func (c *ClientConfig) RealtimeEndpoint() string {
	if c.Server.WebsocketURL != "" {
		return c.Server.WebsocketURL
	}

	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}
