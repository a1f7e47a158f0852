// Package storage - Fleet wallet persistence.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Wallet errors
var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrDuplicateWallet = errors.New("wallet with this address already exists")
)

// WalletRecord represents a managed wallet in the database. The address and
// ciphertext are immutable after creation.
type WalletRecord struct {
	ID              string
	Address         string
	EncryptedSecret []byte
	CreatedAt       time.Time
}

// CreateWallet inserts a new wallet record.
func (s *Storage) CreateWallet(w *WalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO wallets (id, address, encrypted_secret, created_at)
		VALUES (?, ?, ?, ?)
	`, w.ID, w.Address, w.EncryptedSecret, w.CreatedAt.Unix())

	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetWallet retrieves a wallet by address.
func (s *Storage) GetWallet(address string) (*WalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w WalletRecord
	var createdAt int64

	err := s.db.QueryRow(`
		SELECT id, address, encrypted_secret, created_at
		FROM wallets WHERE address = ?
	`, address).Scan(&w.ID, &w.Address, &w.EncryptedSecret, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	w.CreatedAt = time.Unix(createdAt, 0)
	return &w, nil
}

// ListWallets returns all managed wallets ordered by creation time.
func (s *Storage) ListWallets() ([]*WalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, address, encrypted_secret, created_at
		FROM wallets ORDER BY created_at, address
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*WalletRecord
	for rows.Next() {
		var w WalletRecord
		var createdAt int64

		if err := rows.Scan(&w.ID, &w.Address, &w.EncryptedSecret, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}

		w.CreatedAt = time.Unix(createdAt, 0)
		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}

// ListWalletAddresses returns just the addresses of all managed wallets.
func (s *Storage) ListWalletAddresses() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT address FROM wallets ORDER BY created_at, address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	return addresses, rows.Err()
}

// HasWallet reports whether a wallet with the given address exists.
func (s *Storage) HasWallet(address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow(`SELECT 1 FROM wallets WHERE address = ?`, address).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check wallet: %w", err)
	}
	return true, nil
}

// CountWallets returns the number of managed wallets.
func (s *Storage) CountWallets() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM wallets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}

// DeleteWallet removes a wallet by address.
func (s *Storage) DeleteWallet(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM wallets WHERE address = ?`, address)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrWalletNotFound
	}

	return nil
}
