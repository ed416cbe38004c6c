// ABOUTME: Entry point for the development attendance broker.
// ABOUTME: Serves the HTTP API and the realtime websocket channel.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/shiftline/presence/internal/broker"
	"github.com/shiftline/presence/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _ __  _ __ ___  ___  ___ _ __   ___ ___
 | '_ \| '__/ _ \/ __|/ _ \ '_ \ / __/ _ \
 | |_) | | |  __/\__ \  __/ | | | (_|  __/
 | .__/|_|  \___||___/\___|_| |_|\___\___|
 |_|
`

// getConfigPath returns the broker config path.
// Priority: PRESENCE_BROKER_CONFIG env var > XDG config dir > ./broker.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PRESENCE_BROKER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "broker.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "presence", "broker.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: presence-broker <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the broker")
		fmt.Println("  init     Write a starter config file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Company.GeofenceEnabled() {
		green.Print("    ▶ ")
		fmt.Printf("Geofence: %.0fm around %.4f, %.4f\n",
			cfg.Company.GeofenceRadius, cfg.Company.Latitude, cfg.Company.Longitude)
	}
	fmt.Println()

	store, err := broker.NewStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	b := broker.New(cfg, store, logger)
	defer b.Close()

	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: b.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("broker listening", "addr", cfg.Server.HTTPAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

const starterConfig = `server:
  http_addr: ":8080"

database:
  path: presence.db

auth:
  jwt_secret: ${PRESENCE_JWT_SECRET}
  token_ttl: 12h

# Uncomment to restrict check-ins to an area around the office.
# company:
#   name: Example Corp
#   latitude: 37.5663
#   longitude: 126.9779
#   geofence_radius_meters: 200

logging:
  level: info
  format: text
`

func runInit() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return err
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	fmt.Println("Set PRESENCE_JWT_SECRET before running serve.")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
