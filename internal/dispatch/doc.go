// Package dispatch builds and publishes check-in and check-out commands,
// enforcing the connection, position, and identity preconditions before
// anything reaches the wire.
package dispatch
