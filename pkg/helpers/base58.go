// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// rippleAlphabet is the base58 dictionary used by the XRP Ledger. It differs
// from the Bitcoin alphabet so addresses start with 'r' and seeds with 's'.
const rippleAlphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

var rippleDecodeTable = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(rippleAlphabet); i++ {
		table[rippleAlphabet[i]] = int8(i)
	}
	return table
}()

var base58Radix = big.NewInt(58)

// EncodeBase58 encodes b using the ripple base58 alphabet.
func EncodeBase58(b []byte) string {
	n := new(big.Int).SetBytes(b)
	mod := new(big.Int)

	out := make([]byte, 0, len(b)*137/100+1)
	for n.Sign() > 0 {
		n.DivMod(n, base58Radix, mod)
		out = append(out, rippleAlphabet[mod.Int64()])
	}

	// Leading zero bytes map to the zero digit.
	for _, v := range b {
		if v != 0 {
			break
		}
		out = append(out, rippleAlphabet[0])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// DecodeBase58 decodes a ripple-alphabet base58 string.
func DecodeBase58(s string) ([]byte, error) {
	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := rippleDecodeTable[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", s[i])
		}
		n.Mul(n, base58Radix)
		n.Add(n, big.NewInt(int64(v)))
	}

	decoded := n.Bytes()

	zeros := 0
	for zeros < len(s) && s[zeros] == rippleAlphabet[0] {
		zeros++
	}

	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

func base58Checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// EncodeBase58Check prepends the version byte(s), appends a 4-byte double
// SHA-256 checksum, and base58-encodes the result.
func EncodeBase58Check(version []byte, payload []byte) string {
	full := make([]byte, 0, len(version)+len(payload)+4)
	full = append(full, version...)
	full = append(full, payload...)
	full = append(full, base58Checksum(full)...)
	return EncodeBase58(full)
}

// DecodeBase58Check decodes a base58check string, verifies its checksum and
// the expected version prefix, and returns the payload.
func DecodeBase58Check(s string, version []byte) ([]byte, error) {
	full, err := DecodeBase58(s)
	if err != nil {
		return nil, err
	}
	if len(full) < len(version)+5 {
		return nil, fmt.Errorf("base58check string too short")
	}

	body, check := full[:len(full)-4], full[len(full)-4:]
	want := base58Checksum(body)
	for i := range check {
		if check[i] != want[i] {
			return nil, fmt.Errorf("base58check checksum mismatch")
		}
	}

	for i := range version {
		if body[i] != version[i] {
			return nil, fmt.Errorf("unexpected base58check version prefix")
		}
	}
	return body[len(version):], nil
}
