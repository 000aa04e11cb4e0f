package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly a quarter of
// a second on current server hardware, which is negligible for a login and
// prohibitive for offline brute force.
const defaultCost = 12

// MaxPasswordLength is bcrypt's input ceiling; longer inputs are silently
// truncated by the algorithm, so we reject them up front instead.
const MaxPasswordLength = 72

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// HashPassword hashes a plaintext password with bcrypt. The salt is random
// per call and embedded in the output, so equal passwords produce different
// hashes.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password must be at most %d characters", MaxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), defaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash.
// Returns nil on match, an error otherwise. The comparison is constant-time
// inside bcrypt.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("auth: password does not match")
		}
		return fmt.Errorf("auth: comparing password: %w", err)
	}
	return nil
}
