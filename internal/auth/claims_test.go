// ABOUTME: Unit tests for structural claims decoding and session derivation.
// ABOUTME: Covers malformed tokens, expiry, role extraction, and admin detection.

package auth

import (
	"testing"
	"time"
)

// issueToken mints a real signed token; decoding ignores the signature,
// but using the issuer keeps the claim layout identical to production.
func issueToken(t *testing.T, subject string, roles []string, expiresIn time.Duration) string {
	t.Helper()
	token, err := NewTokenIssuer([]byte("test-secret")).Issue(subject, roles, expiresIn)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func TestDecodeClaims_Valid(t *testing.T) {
	token := issueToken(t, "E100", []string{"ROLE_USER"}, time.Hour)

	claims, ok := DecodeClaims(token)
	if !ok {
		t.Fatal("DecodeClaims() ok = false, want true")
	}
	if claims.Subject != "E100" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "E100")
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "ROLE_USER" {
		t.Errorf("Roles = %v, want [ROLE_USER]", claims.Roles)
	}
	if claims.IssuedAt.IsZero() || claims.ExpiresAt.IsZero() {
		t.Errorf("timestamps not populated: iat=%v exp=%v", claims.IssuedAt, claims.ExpiresAt)
	}
}

func TestDecodeClaims_MalformedIsAbsent(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"two segments", "aaaa.bbbb"},
		{"bad base64", "!!!.!!!.!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if claims, ok := DecodeClaims(tt.token); ok || claims != nil {
				t.Errorf("DecodeClaims(%q) = (%v, %v), want (nil, false)", tt.token, claims, ok)
			}
		})
	}
}

func TestDecodeClaims_ExpiredIsAbsent(t *testing.T) {
	token := issueToken(t, "E100", []string{"ROLE_USER"}, -time.Minute)

	if _, ok := DecodeClaims(token); ok {
		t.Error("DecodeClaims() ok = true for expired token, want false")
	}
}

func TestCurrentSession_Derivation(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		wantLogged bool
		wantRole   string
		wantAdmin  bool
		wantSub    string
	}{
		{
			name:       "admin first role",
			token:      issueToken(t, "A001", []string{"ROLE_ADMIN", "ROLE_USER"}, time.Hour),
			wantLogged: true,
			wantRole:   "ROLE_ADMIN",
			wantAdmin:  true,
			wantSub:    "A001",
		},
		{
			name:       "plain user",
			token:      issueToken(t, "E100", []string{"ROLE_USER"}, time.Hour),
			wantLogged: true,
			wantRole:   "ROLE_USER",
			wantSub:    "E100",
		},
		{
			// Admin anywhere but first does not count: role is the
			// first element by contract.
			name:       "admin not first",
			token:      issueToken(t, "E101", []string{"ROLE_USER", "ROLE_ADMIN"}, time.Hour),
			wantLogged: true,
			wantRole:   "ROLE_USER",
			wantSub:    "E101",
		},
		{
			name:       "empty roles",
			token:      issueToken(t, "E102", nil, time.Hour),
			wantLogged: true,
			wantRole:   "",
			wantSub:    "E102",
		},
		{
			name:  "no token",
			token: "",
		},
		{
			name:  "expired token",
			token: issueToken(t, "E103", []string{"ROLE_USER"}, -time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CurrentSession(NewMemoryStore(tt.token))
			if s.LoggedIn != tt.wantLogged {
				t.Errorf("LoggedIn = %v, want %v", s.LoggedIn, tt.wantLogged)
			}
			if s.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", s.Role, tt.wantRole)
			}
			if s.IsAdmin() != tt.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", s.IsAdmin(), tt.wantAdmin)
			}
			if s.Subject != tt.wantSub {
				t.Errorf("Subject = %q, want %q", s.Subject, tt.wantSub)
			}
		})
	}
}

func TestCurrentSession_RecomputedAfterLogout(t *testing.T) {
	store := NewMemoryStore(issueToken(t, "E100", []string{"ROLE_USER"}, time.Hour))

	if !CurrentSession(store).LoggedIn {
		t.Fatal("expected logged-in session before logout")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if s := CurrentSession(store); s.LoggedIn {
		t.Errorf("session still logged in after Clear: %+v", s)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := t.TempDir() + "/token"
	store := NewFileStore(path)

	if got := store.Token(); got != "" {
		t.Errorf("Token() = %q before SetToken, want empty", got)
	}

	if err := store.SetToken("abc.def.ghi"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if got := store.Token(); got != "abc.def.ghi" {
		t.Errorf("Token() = %q, want %q", got, "abc.def.ghi")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := store.Token(); got != "" {
		t.Errorf("Token() = %q after Clear, want empty", got)
	}
	// Clearing twice is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}
