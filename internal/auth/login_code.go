package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// LoginCodeLength is the emailed one-time code length in characters.
const LoginCodeLength = 8

// GenerateLoginCode produces a random 8-character hex login code.
func GenerateLoginCode() (string, error) {
	buf := make([]byte, LoginCodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate login code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
