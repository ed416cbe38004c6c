// ABOUTME: Gates user-initiated check-in/check-out actions on their preconditions.
// ABOUTME: Builds the outbound event and hands it to the realtime channel.

package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftline/presence/internal/geo"
	"github.com/shiftline/presence/internal/realtime"
	"github.com/shiftline/presence/internal/records"
)

// Precondition errors. Each is a user-facing condition, not a fault: the
// caller turns them into status text and the action is simply not sent.
var (
	// ErrNotConnected: the channel is not in the Connected state.
	ErrNotConnected = errors.New("not connected to the attendance service")
	// ErrNoCoordinate: no location fix has been acquired yet.
	ErrNoCoordinate = errors.New("no location available, acquire your position first")
	// ErrNoIdentity: no logged-in employee identity is resolved.
	ErrNoIdentity = errors.New("no employee identity resolved, log in first")
)

// Publisher is the outbound half of the realtime channel.
type Publisher interface {
	Status() realtime.State
	Publish(event records.AttendanceEvent) error
}

// Dispatcher validates the three preconditions of an attendance action and
// publishes the event. It fires optimistically: there is no distinct
// acknowledgment, confirmation is the event's round trip back through the
// subscribed topic into the record store.
type Dispatcher struct {
	channel  Publisher
	identity func() string
	now      func() time.Time
	logger   *slog.Logger

	coord    *geo.Coordinate
	coordSet bool
}

// NewDispatcher creates a dispatcher. identity is consulted at dispatch
// time so a logout between actions is observed.
func NewDispatcher(channel Publisher, identity func() string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channel:  channel,
		identity: identity,
		now:      time.Now,
		logger:   logger.With("component", "dispatch"),
	}
}

// SetCoordinate installs the most recently acquired position. Only an
// explicit re-acquisition replaces it; dispatch failures leave it alone.
func (d *Dispatcher) SetCoordinate(c geo.Coordinate) {
	d.coord = &c
	d.coordSet = true
}

// Coordinate returns the held position fix, if any.
func (d *Dispatcher) Coordinate() (geo.Coordinate, bool) {
	if !d.coordSet {
		return geo.Coordinate{}, false
	}
	return *d.coord, true
}

// Dispatch publishes a check-in or check-out for the current identity.
// All three preconditions must hold: channel Connected, coordinate
// acquired, identity resolved. The first missing one is reported and
// nothing is published.
func (d *Dispatcher) Dispatch(kind records.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown attendance kind %q", kind)
	}

	if d.channel.Status() != realtime.Connected {
		return ErrNotConnected
	}
	if !d.coordSet {
		return ErrNoCoordinate
	}
	identity := d.identity()
	if identity == "" {
		return ErrNoIdentity
	}

	event := records.AttendanceEvent{
		// ID stays zero: the server assigns the authoritative id.
		EmployeeID: identity,
		Timestamp:  d.now().UTC().Format(time.RFC3339),
		Kind:       kind,
		Latitude:   d.coord.Latitude,
		Longitude:  d.coord.Longitude,
	}

	if err := d.channel.Publish(event); err != nil {
		return fmt.Errorf("sending %s: %w", kind, err)
	}

	d.logger.Info("attendance action dispatched", "kind", kind, "employee", identity)
	return nil
}
