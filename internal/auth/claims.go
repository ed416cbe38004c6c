// ABOUTME: Structural decoding of stored bearer tokens into claims.
// ABOUTME: No signature verification here; that is the server's responsibility.

package auth

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the client reads out of its bearer token.
type Claims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// DecodeClaims parses a bearer token without verifying its signature and
// returns the embedded claims. A malformed, empty, or expired token yields
// (nil, false); decode failure is an expected condition and is logged at
// debug level only, never surfaced as an error.
func DecodeClaims(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		slog.Debug("bearer token decode failed", "error", err)
		return nil, false
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	c := &Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		c.Subject = sub
	}
	if raw, ok := mapClaims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				c.Roles = append(c.Roles, role)
			}
		}
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}

	// Expiry is detected lazily here; an expired token behaves exactly
	// like an absent one.
	if !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt) {
		slog.Debug("bearer token expired", "expired_at", c.ExpiresAt)
		return nil, false
	}

	return c, true
}
