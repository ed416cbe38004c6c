// ABOUTME: Admin CLI for managing the employee roster over the HTTP API.
// ABOUTME: Requires an admin session; run presence-tui /login first.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/shiftline/presence/internal/api"
	"github.com/shiftline/presence/internal/auth"
	"github.com/shiftline/presence/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadClient(os.Getenv("PRESENCE_CONFIG"))
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	if url := os.Getenv("PRESENCE_URL"); url != "" {
		cfg.Server.URL = url
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	tokens := auth.NewFileStore(cfg.Server.TokenPath)
	client := api.NewClient(cfg.Server.URL, tokens, logger)

	if session := auth.CurrentSession(tokens); !session.IsAdmin() {
		color.Red("Error: the stored session is not an admin session")
		fmt.Fprintln(os.Stderr, "Log in with an admin account via presence-tui first.")
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "list":
		err = cmdList(ctx, client)
	case "add":
		err = cmdAdd(ctx, client, args)
	case "update":
		err = cmdUpdate(ctx, client, args)
	case "delete":
		err = cmdDelete(ctx, client, args)
	case "history":
		err = cmdHistory(ctx, client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)
	fmt.Println("Usage: presence-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  list                                List all roster entries")
	fmt.Println("  add <email> <employee-id> <password> [name]")
	fmt.Println("                                      Create a roster entry")
	fmt.Println("  update <id> <field> <value>         Update one field (name, department,")
	fmt.Println("                                      job-title, employment-type, salary, role)")
	fmt.Println("  delete <id>                         Delete a roster entry")
	fmt.Println("  history <employee-id>               Show an employee's attendance")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  PRESENCE_URL      Service URL (overrides the config file)")
	fmt.Println("  PRESENCE_CONFIG   Client config path (default: ~/.config/presence/config.toml)")
}

func cmdList(ctx context.Context, client *api.Client) error {
	roster, err := client.ListRoster(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tNAME\tEMAIL\tDEPARTMENT\tROLE")
	for _, e := range roster {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.EmployeeID, e.Name, e.Email, e.Department, e.Role)
	}
	return w.Flush()
}

func cmdAdd(ctx context.Context, client *api.Client, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: add <email> <employee-id> <password> [name]")
	}

	entry := api.RosterEntry{
		Email:      args[0],
		EmployeeID: args[1],
		Password:   args[2],
	}
	if len(args) > 3 {
		entry.Name = args[3]
	}

	created, err := client.CreateRosterEntry(ctx, entry)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("Created roster entry %d", created.ID)
	fmt.Printf(" (%s)\n", created.EmployeeID)
	return nil
}

func cmdUpdate(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: update <id> <field> <value>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	// Updates send the full entry, so fetch the current state first.
	roster, err := client.ListRoster(ctx)
	if err != nil {
		return err
	}
	var entry *api.RosterEntry
	for i := range roster {
		if roster[i].ID == id {
			entry = &roster[i]
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("no roster entry with id %d", id)
	}

	field, value := args[1], args[2]
	switch field {
	case "name":
		entry.Name = value
	case "department":
		entry.Department = value
	case "job-title":
		entry.JobTitle = value
	case "employment-type":
		entry.EmploymentType = value
	case "salary":
		salary, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid salary %q", value)
		}
		entry.Salary = salary
	case "role":
		entry.Role = value
	case "password":
		entry.Password = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	updated, err := client.UpdateRosterEntry(ctx, id, *entry)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("Updated roster entry %d", updated.ID)
	fmt.Printf(" (%s)\n", updated.EmployeeID)
	return nil
}

func cmdDelete(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	if err := client.DeleteRosterEntry(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted roster entry %d\n", id)
	return nil
}

func cmdHistory(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: history <employee-id>")
	}

	events, err := client.AttendanceHistory(ctx, args[0])
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No attendance records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTIMESTAMP\tPOSITION")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f, %.4f\n",
			e.ID, e.Kind, e.Timestamp, e.Latitude, e.Longitude)
	}
	return w.Flush()
}
