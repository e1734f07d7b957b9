package middleware

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSessionSecret creates a random 32-byte secret for CSRF signing.
func GenerateSessionSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// DecodeSessionSecret accepts a hex-encoded secret and falls back to the raw bytes.
func DecodeSessionSecret(s string) []byte {
	if decoded, err := hex.DecodeString(s); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []byte(s)
}
