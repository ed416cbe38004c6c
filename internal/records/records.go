// ABOUTME: Domain types for attendance events shared between client and broker.
// ABOUTME: Defines the wire shape of a check-in/check-out occurrence.

package records

import (
	"fmt"
	"time"
)

// Kind distinguishes the two attendance event types.
type Kind string

const (
	KindCheckIn  Kind = "CHECK_IN"
	KindCheckOut Kind = "CHECK_OUT"
)

// Valid reports whether k is one of the known attendance kinds.
func (k Kind) Valid() bool {
	return k == KindCheckIn || k == KindCheckOut
}

// AttendanceEvent is one check-in or check-out occurrence. The ID is
// assigned by the server; an event built client-side for publishing
// carries ID zero until it comes back through the topic.
type AttendanceEvent struct {
	ID         int64   `json:"id,omitempty"`
	EmployeeID string  `json:"employeeId"`
	Timestamp  string  `json:"timestamp"`
	Kind       Kind    `json:"type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Time parses the event timestamp. Events with unparsable timestamps sort
// as the zero time, which places them last in a descending view.
func (e AttendanceEvent) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Validate checks the fields a broker requires before accepting an event.
func (e AttendanceEvent) Validate() error {
	if e.EmployeeID == "" {
		return fmt.Errorf("employeeId is required")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown attendance type %q", e.Kind)
	}
	return nil
}
