package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAdminKey returns the bcrypt hash stored in config for an admin key.
func HashAdminKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("crypto: admin key must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash admin key: %w", err)
	}
	return string(h), nil
}

// CheckAdminKey reports whether key matches the bcrypt hash.
func CheckAdminKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
