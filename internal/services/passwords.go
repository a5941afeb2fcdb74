package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and checks the per-resource secrets
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. An out-of-range cost falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare reports a mismatch as (false, nil); any other failure is an error
func (h *bcryptHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
}

// checkPassword turns a comparison into the error callers return
func checkPassword(h PasswordHasher, hash, password string, onMismatch func(string) *ServiceError) error {
	ok, err := h.Compare(hash, password)
	if err != nil {
		return NewInternalError("failed to verify password", err)
	}
	if !ok {
		return onMismatch("password does not match")
	}
	return nil
}
