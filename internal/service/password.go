package service

import (
	"fmt"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
)

// preparePassword enforces the complexity policy and returns the bcrypt hash.
// Hashing is slow, so callers run it before opening a transaction.
func preparePassword(plain string) (string, error) {
	if result := auth.ValidatePasswordComplexity(plain); !result.IsValid {
		return "", &apperrors.PasswordPolicyError{Violations: result.Errors}
	}

	hash, err := auth.EncodePassword(plain)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}
