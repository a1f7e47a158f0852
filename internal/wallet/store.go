// Package wallet - Encrypted wallet store.
package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawas-exchange/xrpfleet/internal/storage"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// Store owns the mapping address -> encrypted secret. It is the only
// component that touches wallet secrets; everything else obtains ephemeral
// Wallet values through Resolve and discards them after use.
type Store struct {
	storage *storage.Storage
	log     *logging.Logger
}

// NewStore creates a wallet store backed by the given storage.
func NewStore(st *storage.Storage, log *logging.Logger) *Store {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Store{
		storage: st,
		log:     log.Component("wallet"),
	}
}

// GeneratedWallet is the caller-visible result of generating or importing a
// wallet. The mnemonic is returned once for backup and never stored.
type GeneratedWallet struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

// Generate creates count new wallets encrypted under password and persists
// them. Returns the addresses with one-time backup mnemonics.
func (s *Store) Generate(count int, password string) ([]*GeneratedWallet, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	generated := make([]*GeneratedWallet, 0, count)
	for i := 0; i < count; i++ {
		w, err := Generate(AlgorithmED25519)
		if err != nil {
			return nil, fmt.Errorf("failed to generate wallet: %w", err)
		}

		mnemonic, err := w.Mnemonic()
		if err != nil {
			return nil, fmt.Errorf("failed to derive backup phrase: %w", err)
		}

		if err := s.persist(w, password); err != nil {
			return nil, err
		}

		s.log.Info("generated wallet", "address", w.Address)
		generated = append(generated, &GeneratedWallet{
			Address:  w.Address,
			Mnemonic: mnemonic,
		})
	}

	return generated, nil
}

// ImportSeed imports a wallet from a family seed.
func (s *Store) ImportSeed(seed, password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	w, err := NewFromSeed(seed)
	if err != nil {
		return "", err
	}

	if err := s.persist(w, password); err != nil {
		return "", err
	}

	s.log.Info("imported wallet", "address", w.Address)
	return w.Address, nil
}

// ImportMnemonic imports a wallet from a mnemonic backup phrase.
func (s *Store) ImportMnemonic(mnemonic, password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	w, err := FromMnemonic(mnemonic)
	if err != nil {
		return "", err
	}

	if err := s.persist(w, password); err != nil {
		return "", err
	}

	s.log.Info("imported wallet from mnemonic", "address", w.Address)
	return w.Address, nil
}

func (s *Store) persist(w *Wallet, password string) error {
	blob, err := EncryptSecret(w.Seed, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}

	record := &storage.WalletRecord{
		ID:              uuid.NewString(),
		Address:         w.Address,
		EncryptedSecret: blob,
		CreatedAt:       time.Now(),
	}
	return s.storage.CreateWallet(record)
}

// List returns all managed wallet records.
func (s *Store) List() ([]*storage.WalletRecord, error) {
	return s.storage.ListWallets()
}

// Addresses returns all managed wallet addresses.
func (s *Store) Addresses() ([]string, error) {
	return s.storage.ListWalletAddresses()
}

// Delete removes a wallet record.
func (s *Store) Delete(address string) error {
	if err := s.storage.DeleteWallet(address); err != nil {
		return err
	}
	s.log.Info("deleted wallet", "address", address)
	return nil
}

// Resolve decrypts the wallets for the given addresses. Addresses that are
// unknown or fail to decrypt are silently dropped; the returned slice
// preserves the input order of the wallets that did resolve. The error is
// non-nil only for storage failures.
func (s *Store) Resolve(addresses []string, password string) ([]*Wallet, error) {
	resolved := make([]*Wallet, 0, len(addresses))
	for _, address := range addresses {
		record, err := s.storage.GetWallet(address)
		if err == storage.ErrWalletNotFound {
			s.log.Debug("wallet not found, skipping", "address", address)
			continue
		}
		if err != nil {
			return nil, err
		}

		seed, err := DecryptSecret(record.EncryptedSecret, password)
		if err != nil {
			s.log.Debug("wallet failed to decrypt, skipping", "address", address)
			continue
		}

		w, err := NewFromSeed(seed)
		if err != nil {
			s.log.Warn("stored seed is invalid, skipping", "address", address)
			continue
		}

		resolved = append(resolved, w)
	}
	return resolved, nil
}

// ResolveAll decrypts every managed wallet with the given password.
func (s *Store) ResolveAll(password string) ([]*Wallet, error) {
	addresses, err := s.storage.ListWalletAddresses()
	if err != nil {
		return nil, err
	}
	return s.Resolve(addresses, password)
}
