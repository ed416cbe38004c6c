// ABOUTME: JSON request/response types for the profile and roster HTTP API.
// ABOUTME: Shared between the client and the development broker.

package api

// UserProfile is the current user's profile as returned by GET /api/users/me.
type UserProfile struct {
	ID             int64   `json:"id,omitempty"`
	Email          string  `json:"email,omitempty"`
	EmployeeID     string  `json:"employeeId"`
	Name           string  `json:"name"`
	Department     string  `json:"department"`
	JobTitle       string  `json:"jobTitle"`
	EmploymentType string  `json:"employmentType"`
	Salary         float64 `json:"salary"`
	Role           string  `json:"role,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login. The response is the
// raw JWT as plain text.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
}

// ProfileUpdateRequest is the body of PUT /api/users/me. Empty fields are
// left unchanged.
type ProfileUpdateRequest struct {
	Name           string   `json:"name,omitempty"`
	Department     string   `json:"department,omitempty"`
	JobTitle       string   `json:"jobTitle,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
	Salary         *float64 `json:"salary,omitempty"`
}

// PasswordChangeRequest is the body of POST /api/users/me/password.
type PasswordChangeRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// RosterEntry is an admin-visible roster record (the admin CRUD surface).
type RosterEntry struct {
	ID             int64   `json:"id,omitempty"`
	Email          string  `json:"email"`
	Password       string  `json:"password,omitempty"`
	EmployeeID     string  `json:"employeeId"`
	Name           string  `json:"name"`
	Department     string  `json:"department"`
	JobTitle       string  `json:"jobTitle"`
	EmploymentType string  `json:"employmentType"`
	Salary         float64 `json:"salary"`
	Role           string  `json:"role"`
}

// MessageResponse is the generic {"message": ...} body used by the auth
// and admin endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}
