package storage

import (
	"bytes"
	"testing"
	"time"
)

func TestMasterWalletLifecycle(t *testing.T) {
	store := newTestStorage(t)

	// No master wallet initially
	if _, err := store.GetMasterWallet(); err != ErrNoMasterWallet {
		t.Errorf("GetMasterWallet() error = %v, want ErrNoMasterWallet", err)
	}
	has, err := store.HasMasterWallet()
	if err != nil {
		t.Fatalf("HasMasterWallet() error = %v", err)
	}
	if has {
		t.Error("HasMasterWallet() = true before set")
	}

	// Set
	master := &MasterWalletRecord{
		Address:         "rMASTERaddress11111111111111111111",
		EncryptedSecret: []byte{0xaa, 0xbb},
		CreatedAt:       time.Now(),
	}
	if err := store.SetMasterWallet(master); err != nil {
		t.Fatalf("SetMasterWallet() error = %v", err)
	}

	got, err := store.GetMasterWallet()
	if err != nil {
		t.Fatalf("GetMasterWallet() error = %v", err)
	}
	if got.Address != master.Address {
		t.Errorf("Address = %s, want %s", got.Address, master.Address)
	}
	if !bytes.Equal(got.EncryptedSecret, master.EncryptedSecret) {
		t.Errorf("EncryptedSecret = %x, want %x", got.EncryptedSecret, master.EncryptedSecret)
	}

	// Replace is atomic and leaves exactly one row.
	replacement := &MasterWalletRecord{
		Address:         "rREPLACEMENTaddr111111111111111111",
		EncryptedSecret: []byte{0xcc},
		CreatedAt:       time.Now(),
	}
	if err := store.SetMasterWallet(replacement); err != nil {
		t.Fatalf("SetMasterWallet() replace error = %v", err)
	}

	got, err = store.GetMasterWallet()
	if err != nil {
		t.Fatalf("GetMasterWallet() after replace error = %v", err)
	}
	if got.Address != replacement.Address {
		t.Errorf("Address after replace = %s, want %s", got.Address, replacement.Address)
	}

	var count int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM master_wallet").Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("master_wallet row count = %d, want 1", count)
	}

	// Delete
	if err := store.DeleteMasterWallet(); err != nil {
		t.Fatalf("DeleteMasterWallet() error = %v", err)
	}
	if err := store.DeleteMasterWallet(); err != ErrNoMasterWallet {
		t.Errorf("DeleteMasterWallet() second call error = %v, want ErrNoMasterWallet", err)
	}
}
