// ABOUTME: JSON wire frames for the attendance realtime channel.
// ABOUTME: A small STOMP-like framing: connect handshake, sends, and topic messages.

package realtime

import (
	"encoding/json"
)

// Frame types exchanged on the channel.
const (
	// FrameConnect opens a session; carries the bearer token.
	FrameConnect = "connect"
	// FrameConnected acknowledges the handshake.
	FrameConnected = "connected"
	// FrameSend carries a client command to a destination.
	FrameSend = "send"
	// FrameMessage carries a broadcast event from a topic.
	FrameMessage = "message"
	// FrameError reports a broker-side rejection of a command.
	FrameError = "error"
)

// Destinations on the broker. All attendance events share one broadcast
// topic; commands go to a single fixed address.
const (
	TopicAttendance   = "/topic/attendance"
	CommandAttendance = "/app/attendance"
)

// Frame is the envelope for every message on the channel.
type Frame struct {
	Type        string          `json:"type"`
	Destination string          `json:"destination,omitempty"`
	Token       string          `json:"token,omitempty"`
	Nonce       string          `json:"nonce,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Error       string          `json:"error,omitempty"`
}
