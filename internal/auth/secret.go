// Package auth checks the shared admin secret that gates destructive
// operations such as cascade-deleting a manifest.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrSecretNotConfigured means no admin secret hash is set.
	ErrSecretNotConfigured = errors.New("admin secret is not configured")
	// ErrSecretMismatch means the supplied secret does not match the hash.
	ErrSecretMismatch = errors.New("admin secret does not match")
)

const secretCost = bcrypt.DefaultCost

// HashSecret returns the bcrypt hash to store in admin.secret_hash.
func HashSecret(secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), secretCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret compares secret with the configured hash.
func CheckSecret(hash, secret string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return ErrSecretNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrSecretMismatch
		}
		return err
	}
	return nil
}
