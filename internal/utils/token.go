package utils

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// SecureToken returns a 32-byte cryptographically random token in
// URL-safe base64, used as the opaque single-use invitation token.
func SecureToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewActivationCode returns the random single-use code stored on an
// activation row and mailed to the user.
func NewActivationCode() string {
	return uuid.NewString()
}
