package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// FirstTimeTokenBytes is the entropy of a first-time login token (256 bits).
const FirstTimeTokenBytes = 32

// GenerateOpaqueToken returns a hex encoded random string of n bytes.
func GenerateOpaqueToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
