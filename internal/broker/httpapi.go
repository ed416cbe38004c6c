// ABOUTME: JSON HTTP API of the development broker: auth, profile, roster.
// ABOUTME: Bearer middleware derives the session; admin routes check the role.

package broker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shiftline/presence/internal/api"
	"github.com/shiftline/presence/internal/auth"
	"github.com/shiftline/presence/internal/records"
)

// defaultRole is assigned to self-registered accounts.
const defaultRole = "ROLE_USER"

// registerAPIRoutes wires the JSON endpoints onto the mux.
func (b *Broker) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/signup", b.handleSignup)
	mux.HandleFunc("/api/auth/login", b.handleLogin)
	mux.Handle("/api/auth/logout", b.requireAuth(b.handleLogout))
	mux.Handle("/api/users/me", b.requireAuth(b.handleMe))
	mux.Handle("/api/users/me/password", b.requireAuth(b.handlePasswordChange))
	mux.Handle("/api/attendance/", b.requireAuth(b.handleAttendanceHistory))
	mux.Handle("/api/admin/users", b.requireAuth(b.requireAdmin(b.handleRoster)))
	mux.Handle("/api/admin/users/", b.requireAuth(b.requireAdmin(b.handleRosterEntry)))
}

// requireAuth verifies the bearer token and attaches the derived session
// to the request context. Rejects with 401 on any token problem.
func (b *Broker) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := b.issuer.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		session := auth.Session{LoggedIn: true, Subject: claims.Subject}
		if len(claims.Roles) > 0 {
			session.Role = claims.Roles[0]
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

// requireAdmin rejects non-admin sessions with 403. Unlike 401, a 403
// does not invalidate the caller's token.
func (b *Broker) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.SessionFromContext(r.Context())
		if !ok || !session.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func (b *Broker) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "email, password, and employeeId are required")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not process password")
		return
	}

	entry := api.RosterEntry{
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Role:       defaultRole,
	}
	if _, err := b.store.CreateUser(r.Context(), entry, hash); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		b.logger.Error("signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	writeJSON(w, http.StatusCreated, api.MessageResponse{Message: "User registered successfully"})
}

// handleLogin checks credentials and responds with the raw JWT as plain
// text, which is what the client stores verbatim.
func (b *Broker) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := b.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := b.issuer.Issue(user.EmployeeID, []string{user.Role}, b.cfg.Auth.TokenTTL)
	if err != nil {
		b.logger.Error("issuing token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	b.logger.Info("login", "employee", user.EmployeeID, "role", user.Role)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(token))
}

// handleLogout exists for API symmetry. Tokens are stateless, so the
// client-side token clear is what actually ends the session.
func (b *Broker) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Logged out"})
}

func (b *Broker) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	user, err := b.store.GetUserByEmployeeID(r.Context(), session.Subject)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, profileOf(user))

	case http.MethodPut:
		var req api.ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		entry := user.RosterEntry
		if req.Name != "" {
			entry.Name = req.Name
		}
		if req.Department != "" {
			entry.Department = req.Department
		}
		if req.JobTitle != "" {
			entry.JobTitle = req.JobTitle
		}
		if req.EmploymentType != "" {
			entry.EmploymentType = req.EmploymentType
		}
		if req.Salary != nil {
			entry.Salary = *req.Salary
		}

		updated, err := b.store.UpdateUser(r.Context(), user.ID, entry, "")
		if err != nil {
			b.logger.Error("profile update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not update profile")
			return
		}
		writeJSON(w, http.StatusOK, profileOf(&userRecord{RosterEntry: *updated}))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (b *Broker) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session, _ := auth.SessionFromContext(r.Context())

	var req api.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := b.store.GetUserByEmployeeID(r.Context(), session.Subject)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if !checkPassword(user.PasswordHash, req.OldPassword) {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not process password")
		return
	}
	if _, err := b.store.UpdateUser(r.Context(), user.ID, user.RosterEntry, hash); err != nil {
		b.logger.Error("password change failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not change password")
		return
	}

	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Password changed successfully"})
}

// handleAttendanceHistory serves GET /api/attendance/{employeeId}.
func (b *Broker) handleAttendanceHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	employeeID := strings.TrimPrefix(r.URL.Path, "/api/attendance/")
	if employeeID == "" || strings.Contains(employeeID, "/") {
		writeError(w, http.StatusBadRequest, "employee id required")
		return
	}

	events, err := b.store.AttendanceByEmployee(r.Context(), employeeID)
	if err != nil {
		b.logger.Error("attendance query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load attendance")
		return
	}
	if events == nil {
		events = []records.AttendanceEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleRoster serves the collection half of the admin CRUD surface.
func (b *Broker) handleRoster(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := b.store.ListUsers(r.Context())
		if err != nil {
			b.logger.Error("roster list failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not list roster")
			return
		}
		writeJSON(w, http.StatusOK, users)

	case http.MethodPost:
		var entry api.RosterEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if entry.Email == "" || entry.EmployeeID == "" || entry.Password == "" {
			writeError(w, http.StatusBadRequest, "email, employeeId, and password are required")
			return
		}
		if entry.Role == "" {
			entry.Role = defaultRole
		}

		hash, err := hashPassword(entry.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not process password")
			return
		}
		created, err := b.store.CreateUser(r.Context(), entry, hash)
		if err != nil {
			if errors.Is(err, ErrDuplicateUser) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			b.logger.Error("roster create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not create user")
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRosterEntry serves the per-id half of the admin CRUD surface.
func (b *Broker) handleRosterEntry(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var entry api.RosterEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		hash := ""
		if entry.Password != "" {
			if hash, err = hashPassword(entry.Password); err != nil {
				writeError(w, http.StatusInternalServerError, "could not process password")
				return
			}
		}

		updated, err := b.store.UpdateUser(r.Context(), id, entry, hash)
		if err != nil {
			switch {
			case errors.Is(err, ErrUserNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, ErrDuplicateUser):
				writeError(w, http.StatusConflict, err.Error())
			default:
				b.logger.Error("roster update failed", "error", err)
				writeError(w, http.StatusInternalServerError, "could not update user")
			}
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := b.store.DeleteUser(r.Context(), id); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			b.logger.Error("roster delete failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not delete user")
			return
		}
		writeJSON(w, http.StatusOK, api.MessageResponse{Message: "User deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// profileOf strips the credential fields from a user record.
func profileOf(u *userRecord) api.UserProfile {
	return api.UserProfile{
		ID:             u.ID,
		Email:          u.Email,
		EmployeeID:     u.EmployeeID,
		Name:           u.Name,
		Department:     u.Department,
		JobTitle:       u.JobTitle,
		EmploymentType: u.EmploymentType,
		Salary:         u.Salary,
		Role:           u.Role,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.MessageResponse{Message: message})
}
