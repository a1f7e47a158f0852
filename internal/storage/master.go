// Package storage - Master wallet persistence.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Master wallet errors
var (
	ErrNoMasterWallet = errors.New("no master wallet configured")
)

// MasterWalletRecord represents the single privileged wallet that funds
// broadcasts and receives collect sweeps.
type MasterWalletRecord struct {
	Address         string
	EncryptedSecret []byte
	CreatedAt       time.Time
}

// SetMasterWallet stores the master wallet, replacing any existing one
// atomically.
func (s *Storage) SetMasterWallet(m *MasterWalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM master_wallet`); err != nil {
		return fmt.Errorf("failed to clear master wallet: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO master_wallet (id, address, encrypted_secret, created_at)
		VALUES (1, ?, ?, ?)
	`, m.Address, m.EncryptedSecret, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to set master wallet: %w", err)
	}

	return tx.Commit()
}

// GetMasterWallet retrieves the master wallet.
func (s *Storage) GetMasterWallet() (*MasterWalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m MasterWalletRecord
	var createdAt int64

	err := s.db.QueryRow(`
		SELECT address, encrypted_secret, created_at
		FROM master_wallet WHERE id = 1
	`).Scan(&m.Address, &m.EncryptedSecret, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNoMasterWallet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master wallet: %w", err)
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}

// HasMasterWallet reports whether a master wallet is configured.
func (s *Storage) HasMasterWallet() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow(`SELECT 1 FROM master_wallet WHERE id = 1`).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check master wallet: %w", err)
	}
	return true, nil
}

// DeleteMasterWallet removes the master wallet.
func (s *Storage) DeleteMasterWallet() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM master_wallet`)
	if err != nil {
		return fmt.Errorf("failed to delete master wallet: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNoMasterWallet
	}

	return nil
}
