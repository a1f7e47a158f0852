// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"encoding/hex"
	"strings"
)

// HexToBytes converts a hex string to bytes. XRPL hex fields carry no 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// BytesToHex converts bytes to an uppercase hex string, the form the ledger
// expects for blobs and currency codes.
func BytesToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// IsHex reports whether s is a non-empty string of hex digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// PadLeft pads a byte slice with zeros on the left to reach the specified length.
func PadLeft(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	result := make([]byte, length)
	copy(result[length-len(b):], b)
	return result
}

// PadRight pads a byte slice with zeros on the right to reach the specified length.
func PadRight(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	result := make([]byte, length)
	copy(result, b)
	return result
}
