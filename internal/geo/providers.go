// ABOUTME: Location providers: an external locator command and a pinned coordinate.
// ABOUTME: The command provider is how a terminal host reaches its platform location API.

package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandProvider obtains a fix by running an external locator program
// (CoreLocationCLI, termux-location, or similar) that prints a JSON object
// with latitude and longitude fields. The command is run fresh on every
// call, which is what gives the gate its zero-staleness guarantee.
type CommandProvider struct {
	// Command is the locator program, followed by its arguments.
	Command []string
}

// Current runs the locator command and parses its output.
func (p *CommandProvider) Current(ctx context.Context, opts Options) (Coordinate, error) {
	if len(p.Command) == 0 {
		return Coordinate{}, ErrUnsupported
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Coordinate{}, ctx.Err()
		}
		// Locator tools signal a permission refusal through a non-zero
		// exit with a recognizable message.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && isDenialMessage(string(exitErr.Stderr)) {
			return Coordinate{}, ErrDenied
		}
		return Coordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var coord Coordinate
	if err := json.Unmarshal(out, &coord); err != nil {
		return Coordinate{}, fmt.Errorf("%w: parsing locator output: %v", ErrUnavailable, err)
	}
	return coord, nil
}

// isDenialMessage recognizes permission refusals in locator stderr output.
func isDenialMessage(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "denied") || strings.Contains(s, "not authorized")
}

// StaticProvider always returns the same coordinate. Used in development
// and in tests, where there is no device to ask.
type StaticProvider struct {
	Coord Coordinate
}

// Current returns the pinned coordinate.
func (p *StaticProvider) Current(ctx context.Context, opts Options) (Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, err
	}
	return p.Coord, nil
}
