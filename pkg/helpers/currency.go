// Package helpers provides common utility functions used across the codebase.
package helpers

import "strings"

const currencyHexLen = 40

// CurrencyToHex converts an ASCII currency ticker to the padded 40-character
// hex form used on the ledger. Input that is already 40 hex characters is
// passed through uppercased, so the conversion is idempotent.
func CurrencyToHex(code string) string {
	if len(code) == currencyHexLen && IsHex(code) {
		return strings.ToUpper(code)
	}
	return BytesToHex(PadRight([]byte(code), currencyHexLen/2))
}

// CurrencyFromHex converts a 40-character hex currency code back to its ASCII
// ticker. Anything that is not a decodable 40-hex code is returned unchanged.
func CurrencyFromHex(code string) string {
	if len(code) != currencyHexLen || !IsHex(code) {
		return code
	}
	raw, err := HexToBytes(code)
	if err != nil {
		return code
	}
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	ticker := raw[:end]
	for _, c := range ticker {
		if c < 0x21 || c > 0x7e {
			return code
		}
	}
	return string(ticker)
}
