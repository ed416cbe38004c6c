// Package auth provides token handling for the attendance client and broker.
//
// # Client Side
//
// The client treats the bearer token as opaque credential material: it
// stores whatever the login endpoint returns and decodes the claims
// WITHOUT verifying the signature. Verification is the server's job; the
// client only needs the subject, roles, and expiry to derive its session
// view.
//
//	claims, ok := auth.DecodeClaims(store.Token())
//	session := auth.CurrentSession(store)
//
// Session state has no identity of its own. It is recomputed from the
// stored token on every read, so clearing the token is the entire logout
// mechanism.
//
// # Broker Side
//
// TokenIssuer mints and verifies HS256 tokens carrying sub, roles, iat,
// and exp claims:
//
//	token, err := issuer.Issue("EMP001", []string{"ROLE_USER"}, 12*time.Hour)
//	claims, err := issuer.Verify(token)
//
// # Roles
//
// Roles are plain strings; ROLE_ADMIN unlocks the admin surfaces. Only
// the first role in the claims is considered the session role.
package auth
