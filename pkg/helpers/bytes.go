// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"crypto/rand"
)

// GenerateSecureRandom generates n cryptographically secure random bytes.
func GenerateSecureRandom(n int) ([]byte, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// IsZeroBytes checks if all bytes in the slice are zero.
func IsZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
