// ABOUTME: Session state derived from the stored bearer token on every read.
// ABOUTME: Provides in-memory and file-backed token stores for the client binaries.

package auth

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AdminRole is the role literal that marks an administrator session.
const AdminRole = "ROLE_ADMIN"

// TokenStore holds the raw bearer token for one client process. It is the
// single writer of session state: clearing it is how logout happens.
type TokenStore interface {
	// Token returns the stored token, or "" when logged out.
	Token() string
	// SetToken stores a freshly issued token.
	SetToken(token string) error
	// Clear removes the stored token.
	Clear() error
}

// Session is the derived view of the current token. It has no identity of
// its own: it is recomputed from the store on every CurrentSession call and
// never cached across token changes.
type Session struct {
	LoggedIn bool
	Role     string // first role in the claims, or "" when none
	Subject  string
}

// IsAdmin reports whether the session's role is the administrator role.
func (s Session) IsAdmin() bool {
	return s.Role == AdminRole
}

// CurrentSession derives the session from whatever token the store holds
// right now. Callers needing freshness re-invoke after login, logout, or
// any other event that may have changed the token.
func CurrentSession(store TokenStore) Session {
	claims, ok := DecodeClaims(store.Token())
	if !ok {
		return Session{}
	}

	s := Session{LoggedIn: true, Subject: claims.Subject}
	if len(claims.Roles) > 0 {
		s.Role = claims.Roles[0]
	}
	return s
}

// MemoryStore is a TokenStore for tests and short-lived processes.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a MemoryStore holding the given token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.SetToken("")
}

// FileStore persists the token to a file so a CLI session survives process
// restarts. The default path follows XDG conventions.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. When path is empty
// the default location under the user config directory is used.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = defaultTokenPath()
	}
	return &FileStore{path: path}
}

// defaultTokenPath resolves $XDG_CONFIG_HOME/presence/token, falling back
// to ~/.config/presence/token.
func defaultTokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "presence", "token")
}

func (f *FileStore) Token() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (f *FileStore) SetToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(token+"\n"), 0600)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
