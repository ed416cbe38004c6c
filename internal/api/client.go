// ABOUTME: HTTP client for the profile/roster API with bearer token handling.
// ABOUTME: A 401 invalidates the local session; a 403 surfaces a denial and keeps it.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shiftline/presence/internal/auth"
	"github.com/shiftline/presence/internal/records"
)

// Client errors
var (
	// ErrUnauthorized means the token was missing, expired, or rejected.
	// The client has already cleared the local session when it returns this.
	ErrUnauthorized = errors.New("session expired, log in again")
	// ErrForbidden means the session is valid but lacks the required role.
	// The stored token is left untouched.
	ErrForbidden = errors.New("not allowed for this account")
)

const requestTimeout = 15 * time.Second

// Client talks to the attendance service's HTTP API. Every request carries
// the bearer token from the token store; responses drive session
// invalidation per the 401/403 contract.
type Client struct {
	baseURL string
	tokens  auth.TokenStore
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the API at baseURL (e.g.
// "http://localhost:8080"). Pass nil logger for default.
func NewClient(baseURL string, tokens auth.TokenStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger.With("component", "api"),
	}
}

// Login authenticates and stores the returned token. The service answers
// with the raw JWT as plain text.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", messageOrStatus(payload, resp.StatusCode))
	}

	token := strings.TrimSpace(string(payload))
	if token == "" {
		return fmt.Errorf("login succeeded but no token returned")
	}
	if err := c.tokens.SetToken(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	c.logger.Info("logged in", "email", email)
	return nil
}

// Signup registers a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signup", req, nil)
}

// Logout clears the stored token. Subsequent session reads see a logged
// out state; there is no server-side call to make.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateMe updates the current user's profile fields.
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdateRequest) (*UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodPut, "/api/users/me", update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := PasswordChangeRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/api/users/me/password", req, nil)
}

// AttendanceHistory fetches the stored attendance events for an employee.
// This seeds the record store once at mount.
func (c *Client) AttendanceHistory(ctx context.Context, employeeID string) ([]records.AttendanceEvent, error) {
	var history []records.AttendanceEvent
	path := "/api/attendance/" + url.PathEscape(employeeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ListRoster fetches all roster entries (admin only).
func (c *Client) ListRoster(ctx context.Context) ([]RosterEntry, error) {
	var roster []RosterEntry
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// CreateRosterEntry creates an employee record (admin only).
func (c *Client) CreateRosterEntry(ctx context.Context, entry RosterEntry) (*RosterEntry, error) {
	var created RosterEntry
	if err := c.do(ctx, http.MethodPost, "/api/admin/users", entry, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRosterEntry updates an employee record by id (admin only).
func (c *Client) UpdateRosterEntry(ctx context.Context, id int64, entry RosterEntry) (*RosterEntry, error) {
	var updated RosterEntry
	path := fmt.Sprintf("/api/admin/users/%d", id)
	if err := c.do(ctx, http.MethodPut, path, entry, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRosterEntry deletes an employee record by id (admin only).
func (c *Client) DeleteRosterEntry(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), nil, nil)
}

// do performs an authenticated JSON request and decodes the response into
// out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The session is dead; clear it so the next read forces re-login.
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("clearing invalid token failed", "error", err)
		}
		return ErrUnauthorized

	case resp.StatusCode == http.StatusForbidden:
		// Authenticated but not allowed. The token stays.
		return ErrForbidden

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: %s", method, path, messageOrStatus(payload, resp.StatusCode))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// messageOrStatus extracts a {"message": ...} body, falling back to the
// HTTP status text.
func messageOrStatus(payload []byte, statusCode int) string {
	var msg MessageResponse
	if err := json.Unmarshal(payload, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	if s := strings.TrimSpace(string(payload)); s != "" && len(s) < 200 {
		return s
	}
	return http.StatusText(statusCode)
}
