// ABOUTME: bcrypt password hashing for broker accounts.
// ABOUTME: Hashes never leave the broker; comparison is constant-time.

package broker

import (
	"golang.org/x/crypto/bcrypt"
)

// hashPassword derives a bcrypt hash for storage.
func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// checkPassword reports whether password matches the stored hash.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
