package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinAdminKeyLength matches the length the admin login route accepts.
const MinAdminKeyLength = 8

// ErrWeakAdminKey is returned when an admin key is too short to hash.
var ErrWeakAdminKey = fmt.Errorf("admin key must be at least %d characters", MinAdminKeyLength)

// HashAdminKey produces the ADMIN_KEY_HASH value for key.  Keys shorter
// than MinAdminKeyLength could never log in and are refused; keys longer
// than bcrypt's 72 byte limit are refused by bcrypt itself.
func HashAdminKey(key string, cost int) (string, error) {
	if len(key) < MinAdminKeyLength {
		return "", ErrWeakAdminKey
	}
	b, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash admin key: %w", err)
	}
	return string(b), nil
}

// CheckAdminKeyHash reports why hash cannot be used for admin login.  An
// empty hash is valid and means admin login is disabled.
func CheckAdminKeyHash(hash string) error {
	if hash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("ADMIN_KEY_HASH is not a bcrypt hash: %w", err)
	}
	return nil
}

// VerifyAdminKey compares key against the configured hash.  An empty or
// malformed hash never matches.
func VerifyAdminKey(hash, key string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
