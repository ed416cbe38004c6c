// ABOUTME: Session propagation through request handlers via context.
// ABOUTME: Provides WithSession/SessionFromContext for broker-side auth.

package auth

import (
	"context"
)

// sessionContextKey is the key type for storing a Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the resolved session attached.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext retrieves the session from the context. The second
// return is false when none is attached.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}
