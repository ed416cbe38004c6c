// Package broker implements the development attendance service the client
// binaries talk to.
//
// It serves two surfaces from one listener:
//
//   - The JSON HTTP API: auth, profile, attendance history, and the
//     admin roster CRUD, all under /api.
//   - The realtime websocket endpoint at /ws, which accepts attendance
//     commands and broadcasts accepted events to every session.
//
// The broker is authoritative for event ids and timestamps, deduplicates
// retried commands by nonce, and optionally rejects check-ins outside a
// configured geofence. State lives in SQLite.
package broker
