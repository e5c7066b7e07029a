package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor used for password hashes.
	BcryptCost = 10
	// MinPasswordLength is the minimum number of characters in a password.
	MinPasswordLength = 12
)

// Password rule messages, one per complexity requirement.
const (
	MsgPasswordTooShort  = "Password must be at least 12 characters long"
	MsgPasswordNoUpper   = "Password must contain at least one uppercase letter"
	MsgPasswordNoLower   = "Password must contain at least one lowercase letter"
	MsgPasswordNoDigit   = "Password must contain at least one number"
	MsgPasswordNoSpecial = "Password must contain at least one special character"
)

// PasswordValidation is the outcome of a complexity check.
type PasswordValidation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// EncodePassword hashes a plaintext password with bcrypt. The password is
// digested first so bcrypt's 72 byte input limit never truncates or rejects it.
func EncodePassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MatchPassword reports whether plain matches the stored bcrypt hash.
func MatchPassword(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(plain)) == nil
}

// prehash returns the base64 SHA-256 digest of plain, 44 bytes for any input.
func prehash(plain string) []byte {
	sum := sha256.Sum256([]byte(plain))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// ValidatePasswordComplexity checks every rule and reports all violations.
func ValidatePasswordComplexity(plain string) PasswordValidation {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	errs := make([]string, 0, 5)
	if utf8.RuneCountInString(plain) < MinPasswordLength {
		errs = append(errs, MsgPasswordTooShort)
	}
	if !hasUpper {
		errs = append(errs, MsgPasswordNoUpper)
	}
	if !hasLower {
		errs = append(errs, MsgPasswordNoLower)
	}
	if !hasDigit {
		errs = append(errs, MsgPasswordNoDigit)
	}
	if !hasSpecial {
		errs = append(errs, MsgPasswordNoSpecial)
	}

	return PasswordValidation{IsValid: len(errs) == 0, Errors: errs}
}
