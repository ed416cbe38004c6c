// ABOUTME: Interactive terminal client for the attendance service.
// ABOUTME: Wires the HTTP API, realtime channel, geolocation gate, and record store.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/shiftline/presence/internal/api"
	"github.com/shiftline/presence/internal/auth"
	"github.com/shiftline/presence/internal/config"
	"github.com/shiftline/presence/internal/dispatch"
	"github.com/shiftline/presence/internal/geo"
	"github.com/shiftline/presence/internal/realtime"
	"github.com/shiftline/presence/internal/records"
)

func main() {
	configPath := flag.String("config", "", "Path to client config (default: ~/.config/presence/config.toml)")
	serverURL := flag.String("server", "", "Override the service URL from the config")
	flag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := newApp(cfg, logger)
	defer app.channel.Disconnect()

	fmt.Printf("presence-tui connected to %s\n", cfg.Server.URL)
	if session := auth.CurrentSession(app.tokens); session.LoggedIn {
		fmt.Printf("Session: %s", session.Subject)
		if session.IsAdmin() {
			fmt.Print(" (admin)")
		}
		fmt.Println()
	} else {
		fmt.Println("Session: not logged in (/login <email> <password>)")
	}
	fmt.Println("Type /help for commands. Ctrl+C to quit.")
	fmt.Println()

	if err := app.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

// newLogger builds a stderr text logger so log lines don't mix with the
// prompt on stdout.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// app holds the wired client pieces for the interactive session.
type app struct {
	cfg        *config.ClientConfig
	tokens     auth.TokenStore
	client     *api.Client
	store      *records.Store
	channel    *realtime.Channel
	gate       *geo.Gate
	dispatcher *dispatch.Dispatcher
}

func newApp(cfg *config.ClientConfig, logger *slog.Logger) *app {
	tokens := auth.NewFileStore(cfg.Server.TokenPath)
	store := records.NewStore(logger)

	channel := realtime.NewChannel(realtime.Config{
		Endpoint: cfg.RealtimeEndpoint(),
		Sink:     store,
		OnServerError: func(msg string) {
			color.Red("\n[server] %s", msg)
		},
		Logger: logger,
	})

	a := &app{
		cfg:     cfg,
		tokens:  tokens,
		client:  api.NewClient(cfg.Server.URL, tokens, logger),
		store:   store,
		channel: channel,
		gate:    geo.NewGate(locationProvider(cfg), logger),
	}
	a.dispatcher = dispatch.NewDispatcher(channel, channel.Identity, logger)
	return a
}

// locationProvider picks the position source from the config. Returns nil
// when nothing is configured, which the gate reports as unsupported.
func locationProvider(cfg *config.ClientConfig) geo.Provider {
	if cfg.Location.Pinned {
		return &geo.StaticProvider{Coord: geo.Coordinate{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		}}
	}
	if len(cfg.Location.Command) > 0 {
		return &geo.CommandProvider{Command: cfg.Location.Command}
	}
	return nil
}

func (a *app) run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(a.prompt())

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else if err := scanner.Err(); err != nil {
				errCh <- err
			} else {
				errCh <- io.EOF
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if err := a.dispatchCommand(ctx, input); err != nil {
			color.Red("[error] %v", err)
		}
		fmt.Println()
	}
}

// prompt includes the identity once the realtime channel is bound.
func (a *app) prompt() string {
	if id := a.channel.Identity(); id != "" {
		return fmt.Sprintf("[%s]> ", id)
	}
	return "> "
}

func (a *app) dispatchCommand(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		printHelp()
		return nil
	case "/login":
		if len(args) != 2 {
			return fmt.Errorf("usage: /login <email> <password>")
		}
		return a.login(ctx, args[0], args[1])
	case "/logout":
		return a.logout()
	case "/me":
		return a.showProfile(ctx)
	case "/status":
		a.showStatus()
		return nil
	case "/locate":
		return a.locate(ctx)
	case "/checkin":
		return a.mark(ctx, records.KindCheckIn)
	case "/checkout":
		return a.mark(ctx, records.KindCheckOut)
	case "/records":
		a.showRecords()
		return nil
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func printHelp() {
	yellow := color.New(color.FgYellow)
	yellow.Println("Commands:")
	fmt.Println("  /login <email> <password>   Log in and open the realtime channel")
	fmt.Println("  /logout                     Close the channel and clear the token")
	fmt.Println("  /me                         Show the current profile")
	fmt.Println("  /status                     Show session and channel state")
	fmt.Println("  /locate                     Acquire the current position")
	fmt.Println("  /checkin                    Record a check-in at the held position")
	fmt.Println("  /checkout                   Record a check-out at the held position")
	fmt.Println("  /records                    Show the attendance records, newest first")
	fmt.Println("  /quit                       Exit")
}

// login authenticates, loads the profile and history, and opens the
// realtime channel bound to the resolved employee id.
func (a *app) login(ctx context.Context, email, password string) error {
	if err := a.client.Login(ctx, email, password); err != nil {
		return err
	}

	profile, err := a.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	history, err := a.client.AttendanceHistory(ctx, profile.EmployeeID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	a.store.Seed(history)

	if err := a.channel.Connect(ctx, profile.EmployeeID, a.tokens.Token()); err != nil {
		return fmt.Errorf("opening realtime channel: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Logged in as %s (%s)\n", profile.Name, profile.EmployeeID)
	fmt.Printf("Loaded %d attendance records\n", a.store.Len())
	return nil
}

func (a *app) logout() error {
	a.channel.Disconnect()
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func (a *app) showProfile(ctx context.Context) error {
	profile, err := a.client.Me(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Printf("%s", profile.Name)
	fmt.Printf(" (%s)\n", profile.EmployeeID)
	fmt.Printf("  Email:      %s\n", profile.Email)
	fmt.Printf("  Department: %s\n", profile.Department)
	fmt.Printf("  Job title:  %s\n", profile.JobTitle)
	fmt.Printf("  Type:       %s\n", profile.EmploymentType)
	return nil
}

func (a *app) showStatus() {
	session := auth.CurrentSession(a.tokens)
	if session.LoggedIn {
		fmt.Printf("Session:  %s", session.Subject)
		if session.IsAdmin() {
			fmt.Print(" (admin)")
		}
		fmt.Println()
	} else {
		fmt.Println("Session:  not logged in")
	}

	fmt.Printf("Channel:  %s\n", a.channel.Status())
	if coord, ok := a.dispatcher.Coordinate(); ok {
		fmt.Printf("Position: %.6f, %.6f\n", coord.Latitude, coord.Longitude)
	} else {
		fmt.Println("Position: not acquired (/locate)")
	}
	fmt.Printf("Records:  %d\n", a.store.Len())
}

func (a *app) locate(ctx context.Context) error {
	coord, err := a.gate.Acquire(ctx)
	if err != nil {
		return err
	}
	a.dispatcher.SetCoordinate(coord)
	fmt.Printf("Position acquired: %.6f, %.6f\n", coord.Latitude, coord.Longitude)
	return nil
}

func (a *app) mark(ctx context.Context, kind records.Kind) error {
	// Acquire a fresh position if none is held yet.
	if _, ok := a.dispatcher.Coordinate(); !ok {
		if err := a.locate(ctx); err != nil {
			return err
		}
	}
	if err := a.dispatcher.Dispatch(kind); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	if kind == records.KindCheckIn {
		green.Println("Check-in sent")
	} else {
		green.Println("Check-out sent")
	}
	return nil
}

func (a *app) showRecords() {
	events := a.store.Snapshot()
	if len(events) == 0 {
		fmt.Println("No attendance records")
		return
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	for _, e := range events {
		if e.Kind == records.KindCheckIn {
			green.Printf("%-10s", "CHECK IN")
		} else {
			yellow.Printf("%-10s", "CHECK OUT")
		}
		fmt.Printf(" %s  (%.4f, %.4f)\n", e.Timestamp, e.Latitude, e.Longitude)
	}
}
