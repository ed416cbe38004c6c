// ABOUTME: Unit tests for broker YAML and client TOML configuration loading.
// ABOUTME: Covers env expansion, duration parsing, defaults, and validation failures.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeFile(t, "broker.yaml", `
server:
  http_addr: ":8080"
database:
  path: /tmp/presence-test.db
auth:
  jwt_secret: super-secret
  token_ttl: 2h
company:
  name: Acme
  latitude: 37.5665
  longitude: 126.978
  geofence_radius_meters: 250
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if !cfg.Company.GeofenceEnabled() {
		t.Error("GeofenceEnabled() = false, want true")
	}
}

func TestLoad_TokenTTLDefault(t *testing.T) {
	path := writeFile(t, "broker.yaml", `
server:
  http_addr: ":8080"
database:
  path: /tmp/presence-test.db
auth:
  jwt_secret: super-secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want default 12h", cfg.Auth.TokenTTL)
	}
	if cfg.Company.GeofenceEnabled() {
		t.Error("GeofenceEnabled() = true for zero config, want false")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PRESENCE_TEST_SECRET", "from-env")
	path := writeFile(t, "broker.yaml", `
server:
  http_addr: ":8080"
database:
  path: /tmp/presence-test.db
auth:
  jwt_secret: ${PRESENCE_TEST_SECRET}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "missing addr",
			yaml:    "database:\n  path: /tmp/x.db\nauth:\n  jwt_secret: s\n",
			wantMsg: "http_addr",
		},
		{
			name:    "missing database",
			yaml:    "server:\n  http_addr: \":8080\"\nauth:\n  jwt_secret: s\n",
			wantMsg: "database.path",
		},
		{
			name:    "missing secret",
			yaml:    "server:\n  http_addr: \":8080\"\ndatabase:\n  path: /tmp/x.db\n",
			wantMsg: "jwt_secret",
		},
		{
			name:    "bad ttl",
			yaml:    "server:\n  http_addr: \":8080\"\ndatabase:\n  path: /tmp/x.db\nauth:\n  jwt_secret: s\n  token_ttl: fortnight\n",
			wantMsg: "token_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "broker.yaml", tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want validation failure")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadClient_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.Server.URL != "http://localhost:8080" {
		t.Errorf("URL = %q, want localhost default", cfg.Server.URL)
	}
	if got := cfg.RealtimeEndpoint(); got != "ws://localhost:8080/ws" {
		t.Errorf("RealtimeEndpoint() = %q", got)
	}
}

func TestLoadClient_Valid(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
url = "https://attendance.example.com"

[location]
command = ["CoreLocationCLI", "--json"]

[logging]
level = "debug"
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if got := cfg.RealtimeEndpoint(); got != "wss://attendance.example.com/ws" {
		t.Errorf("RealtimeEndpoint() = %q", got)
	}
	if len(cfg.Location.Command) != 2 {
		t.Errorf("Command = %v", cfg.Location.Command)
	}
}

func TestLoadClient_PinnedAndCommandConflict(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
url = "http://localhost:8080"

[location]
pinned = true
latitude = 1.0
longitude = 2.0
command = ["locator"]
`)

	if _, err := LoadClient(path); err == nil {
		t.Fatal("LoadClient() error = nil, want conflict error")
	}
}

func TestLoadClient_WebsocketOverride(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
url = "http://localhost:8080"
websocket_url = "ws://other-host:9000/ws"
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if got := cfg.RealtimeEndpoint(); got != "ws://other-host:9000/ws" {
		t.Errorf("RealtimeEndpoint() = %q", got)
	}
}
