package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its account hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword hashes an account password for AUTH_ACCOUNTS. Costs outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckHashCost rejects account hashes that are not bcrypt or were made with
// fewer rounds than minCost.
func CheckHashCost(hashed string, minCost int) error {
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		return fmt.Errorf("not a bcrypt hash: %w", err)
	}
	if cost < minCost {
		return fmt.Errorf("bcrypt cost %d is below the minimum %d", cost, minCost)
	}
	return nil
}

// ComparePassword verifies a password against an account hash.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
