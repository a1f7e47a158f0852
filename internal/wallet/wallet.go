// Package wallet - Wallet construction and import.
package wallet

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned when a mnemonic phrase cannot be decoded.
var ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

// Wallet is a decrypted, in-memory wallet. It is derived on demand and must
// never be persisted or logged.
type Wallet struct {
	Address string
	Seed    string

	keys *KeyPair
}

// NewFromSeed constructs a wallet from a family seed.
func NewFromSeed(seed string) (*Wallet, error) {
	keys, err := DeriveKeyPair(seed)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		Address: keys.Address(),
		Seed:    seed,
		keys:    keys,
	}, nil
}

// Generate creates a new wallet with fresh entropy.
func Generate(alg Algorithm) (*Wallet, error) {
	seed, err := GenerateSeed(alg)
	if err != nil {
		return nil, err
	}
	return NewFromSeed(seed)
}

// ValidateMnemonic checks if a mnemonic is valid.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// FromMnemonic constructs a wallet from a 12-word mnemonic backup phrase.
// The phrase encodes the same 16 bytes of entropy as the family seed.
func FromMnemonic(mnemonic string) (*Wallet, error) {
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	if len(entropy) != seedEntropyLen {
		return nil, ErrInvalidMnemonic
	}

	seed, err := EncodeSeed(entropy, AlgorithmED25519)
	if err != nil {
		return nil, err
	}
	return NewFromSeed(seed)
}

// Mnemonic returns the 12-word backup phrase for this wallet's seed entropy.
// Only ed25519 seeds round-trip through FromMnemonic to the same address.
func (w *Wallet) Mnemonic() (string, error) {
	entropy, _, err := DecodeSeed(w.Seed)
	if err != nil {
		return "", err
	}
	defer SecureClear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// Keys returns the wallet's signing key pair.
func (w *Wallet) Keys() *KeyPair {
	return w.keys
}
