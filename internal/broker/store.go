// ABOUTME: SQLite persistence for the development broker using modernc.org/sqlite.
// ABOUTME: Holds the employee roster and the attendance event log.

package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/shiftline/presence/internal/api"
	"github.com/shiftline/presence/internal/records"
)

// Store errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("email or employee id already registered")
)

// userRecord is a roster row including the password hash, which never
// leaves the broker.
type userRecord struct {
	api.RosterEntry
	PasswordHash string
}

// Store is the broker's SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the SQLite database at the given path.
// Parent directories are created if needed. Use ":memory:" for tests.
func NewStore(path string) (*Store, error) {
	logger := slog.Default().With("component", "broker-store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("broker store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			employee_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			employment_type TEXT NOT NULL DEFAULT '',
			salary REAL NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'ROLE_USER'
		);

		CREATE TABLE IF NOT EXISTS attendance (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			type TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_attendance_employee
			ON attendance(employee_id, timestamp DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateUser inserts a roster entry with the given password hash.
func (s *Store) CreateUser(ctx context.Context, entry api.RosterEntry, passwordHash string) (*api.RosterEntry, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, employee_id, name, department, job_title, employment_type, salary, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Email, passwordHash, entry.EmployeeID, entry.Name, entry.Department,
		entry.JobTitle, entry.EmploymentType, entry.Salary, entry.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}

	entry.ID = id
	entry.Password = ""
	return &entry, nil
}

// isUniqueViolation recognizes SQLite unique constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

const userColumns = `id, email, password_hash, employee_id, name, department, job_title, employment_type, salary, role`

// scanUser reads one user row.
func scanUser(row interface{ Scan(...any) error }) (*userRecord, error) {
	var u userRecord
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmployeeID, &u.Name,
		&u.Department, &u.JobTitle, &u.EmploymentType, &u.Salary, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail looks up a user for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*userRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByEmployeeID looks up a user by employee id.
func (s *Store) GetUserByEmployeeID(ctx context.Context, employeeID string) (*userRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE employee_id = ?`, employeeID)
	return scanUser(row)
}

// GetUserByID looks up a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*userRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListUsers returns the whole roster ordered by employee id.
func (s *Store) ListUsers(ctx context.Context) ([]api.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY employee_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []api.RosterEntry
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u.RosterEntry)
	}
	return out, rows.Err()
}

// UpdateUser overwrites the mutable roster fields of a user. An empty
// passwordHash keeps the existing credential.
func (s *Store) UpdateUser(ctx context.Context, id int64, entry api.RosterEntry, passwordHash string) (*api.RosterEntry, error) {
	current, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if passwordHash == "" {
		passwordHash = current.PasswordHash
	}
	if entry.Role == "" {
		entry.Role = current.Role
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, password_hash = ?, employee_id = ?, name = ?,
			department = ?, job_title = ?, employment_type = ?, salary = ?, role = ?
		WHERE id = ?`,
		entry.Email, passwordHash, entry.EmployeeID, entry.Name, entry.Department,
		entry.JobTitle, entry.EmploymentType, entry.Salary, entry.Role, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}

	entry.ID = id
	entry.Password = ""
	return &entry, nil
}

// DeleteUser removes a roster entry.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// InsertAttendance persists an accepted attendance event and returns it
// with the server-assigned id.
func (s *Store) InsertAttendance(ctx context.Context, event records.AttendanceEvent) (records.AttendanceEvent, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (employee_id, timestamp, type, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)`,
		event.EmployeeID, event.Timestamp, string(event.Kind), event.Latitude, event.Longitude)
	if err != nil {
		return records.AttendanceEvent{}, fmt.Errorf("inserting attendance: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return records.AttendanceEvent{}, fmt.Errorf("reading attendance id: %w", err)
	}
	event.ID = id
	return event, nil
}

// AttendanceByEmployee returns an employee's events, newest first.
func (s *Store) AttendanceByEmployee(ctx context.Context, employeeID string) ([]records.AttendanceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, timestamp, type, latitude, longitude
		FROM attendance WHERE employee_id = ?
		ORDER BY timestamp DESC, id DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var out []records.AttendanceEvent
	for rows.Next() {
		var e records.AttendanceEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Timestamp, &kind, &e.Latitude, &e.Longitude); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		e.Kind = records.Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
