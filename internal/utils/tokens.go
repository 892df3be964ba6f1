package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRefreshToken returns a hex-encoded random token. nBytes <= 0 falls
// back to 32 (256 bits).
func NewRefreshToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
