// Package wallet - Master wallet management.
package wallet

import (
	"fmt"
	"time"

	"github.com/lawas-exchange/xrpfleet/internal/storage"
)

// CreateMaster generates a fresh master wallet, replacing any existing one.
// The mnemonic is returned once for backup.
func (s *Store) CreateMaster(password string) (*GeneratedWallet, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	w, err := Generate(AlgorithmED25519)
	if err != nil {
		return nil, fmt.Errorf("failed to generate master wallet: %w", err)
	}

	mnemonic, err := w.Mnemonic()
	if err != nil {
		return nil, fmt.Errorf("failed to derive backup phrase: %w", err)
	}

	if err := s.persistMaster(w, password); err != nil {
		return nil, err
	}

	s.log.Info("created master wallet", "address", w.Address)
	return &GeneratedWallet{Address: w.Address, Mnemonic: mnemonic}, nil
}

// SetMasterFromSeed sets the master wallet from a family seed, replacing any
// existing one.
func (s *Store) SetMasterFromSeed(seed, password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	w, err := NewFromSeed(seed)
	if err != nil {
		return "", err
	}

	if err := s.persistMaster(w, password); err != nil {
		return "", err
	}

	s.log.Info("set master wallet", "address", w.Address)
	return w.Address, nil
}

func (s *Store) persistMaster(w *Wallet, password string) error {
	blob, err := EncryptSecret(w.Seed, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt master secret: %w", err)
	}

	return s.storage.SetMasterWallet(&storage.MasterWalletRecord{
		Address:         w.Address,
		EncryptedSecret: blob,
		CreatedAt:       time.Now(),
	})
}

// MasterInfo returns the master wallet's address and creation time.
func (s *Store) MasterInfo() (string, time.Time, error) {
	record, err := s.storage.GetMasterWallet()
	if err != nil {
		return "", time.Time{}, err
	}
	return record.Address, record.CreatedAt, nil
}

// HasMaster reports whether a master wallet is configured.
func (s *Store) HasMaster() (bool, error) {
	return s.storage.HasMasterWallet()
}

// ResolveMaster decrypts the master wallet. Unlike Resolve, a decryption
// failure here is a hard error: master operations cannot proceed without it.
func (s *Store) ResolveMaster(password string) (*Wallet, error) {
	record, err := s.storage.GetMasterWallet()
	if err != nil {
		return nil, err
	}

	seed, err := DecryptSecret(record.EncryptedSecret, password)
	if err != nil {
		return nil, err
	}

	return NewFromSeed(seed)
}
