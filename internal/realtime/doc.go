// Package realtime manages the websocket channel that carries attendance
// events between the client and the broker.
//
// # Protocol
//
// Frames are JSON objects with a type field. A session starts with a
// connect frame carrying the bearer token; the broker answers with
// connected or an error frame. After that the client publishes send
// frames to the /app/attendance command destination and receives message
// frames from the shared /topic/attendance topic.
//
// # Channel Lifecycle
//
// A Channel moves between Disconnected, Connecting, Connected, and
// Failed. Connect is a no-op without an identity or when already serving
// the same identity; connecting as a different identity requires an
// explicit Disconnect first. There is no automatic retry: a Failed
// channel stays failed until the next Connect call.
//
// # Filtering
//
// The broker broadcasts every accepted event to every session. The
// channel drops events whose employeeId does not match the bound
// identity before they reach the Sink, so the record store only ever
// sees the current user's events.
package realtime
