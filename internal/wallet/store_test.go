package wallet

import (
	"os"
	"testing"

	"github.com/lawas-exchange/xrpfleet/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "xrpfleet-wallet-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	st, err := storage.New(&storage.Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return NewStore(st, nil)
}

func TestGenerateAndResolve(t *testing.T) {
	store := newTestStore(t)

	generated, err := store.Generate(3, "pw1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(generated) != 3 {
		t.Fatalf("Generate() returned %d wallets, want 3", len(generated))
	}

	// Addresses are unique and well formed.
	seen := make(map[string]bool)
	addresses := make([]string, 0, 3)
	for _, g := range generated {
		if seen[g.Address] {
			t.Errorf("duplicate address %s", g.Address)
		}
		seen[g.Address] = true
		if !IsValidAddress(g.Address) {
			t.Errorf("invalid address %s", g.Address)
		}
		if g.Mnemonic == "" {
			t.Error("expected a backup mnemonic")
		}
		addresses = append(addresses, g.Address)
	}

	// Correct password resolves all three.
	resolved, err := store.Resolve(addresses, "pw1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved) != 3 {
		t.Errorf("Resolve() with correct password = %d wallets, want 3", len(resolved))
	}
	for i, w := range resolved {
		if w.Address != addresses[i] {
			t.Errorf("resolved[%d].Address = %s, want %s (input order)", i, w.Address, addresses[i])
		}
	}

	// Wrong password resolves none, without error.
	resolved, err = store.Resolve(addresses, "wrong")
	if err != nil {
		t.Fatalf("Resolve() with wrong password error = %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("Resolve() with wrong password = %d wallets, want 0", len(resolved))
	}
}

func TestResolveSkipsUnknownAddresses(t *testing.T) {
	store := newTestStore(t)

	generated, err := store.Generate(1, "pw1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	addresses := []string{"rUnknownAddr1111111111111111111111", generated[0].Address}
	resolved, err := store.Resolve(addresses, "pw1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("Resolve() = %d wallets, want 1", len(resolved))
	}
	if resolved[0].Address != generated[0].Address {
		t.Errorf("resolved wrong wallet: %s", resolved[0].Address)
	}
}

func TestImportSeedRoundtrip(t *testing.T) {
	store := newTestStore(t)

	w, err := Generate(AlgorithmED25519)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	address, err := store.ImportSeed(w.Seed, "pw1")
	if err != nil {
		t.Fatalf("ImportSeed() error = %v", err)
	}
	if address != w.Address {
		t.Errorf("ImportSeed() address = %s, want %s", address, w.Address)
	}

	resolved, err := store.Resolve([]string{address}, "pw1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved) != 1 || resolved[0].Seed != w.Seed {
		t.Error("imported wallet did not round-trip")
	}
}

func TestImportSeedDuplicate(t *testing.T) {
	store := newTestStore(t)

	w, _ := Generate(AlgorithmED25519)
	if _, err := store.ImportSeed(w.Seed, "pw1"); err != nil {
		t.Fatalf("ImportSeed() error = %v", err)
	}
	if _, err := store.ImportSeed(w.Seed, "pw1"); err != storage.ErrDuplicateWallet {
		t.Errorf("second ImportSeed() error = %v, want ErrDuplicateWallet", err)
	}
}

func TestMnemonicRoundtrip(t *testing.T) {
	w, err := Generate(AlgorithmED25519)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	mnemonic, err := w.Mnemonic()
	if err != nil {
		t.Fatalf("Mnemonic() error = %v", err)
	}

	restored, err := FromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic() error = %v", err)
	}
	if restored.Address != w.Address {
		t.Errorf("FromMnemonic() address = %s, want %s", restored.Address, w.Address)
	}
	if restored.Seed != w.Seed {
		t.Errorf("FromMnemonic() seed mismatch")
	}
}

func TestImportMnemonic(t *testing.T) {
	store := newTestStore(t)

	w, _ := Generate(AlgorithmED25519)
	mnemonic, _ := w.Mnemonic()

	address, err := store.ImportMnemonic(mnemonic, "pw1")
	if err != nil {
		t.Fatalf("ImportMnemonic() error = %v", err)
	}
	if address != w.Address {
		t.Errorf("ImportMnemonic() address = %s, want %s", address, w.Address)
	}

	if _, err := store.ImportMnemonic("not a valid phrase", "pw1"); err != ErrInvalidMnemonic {
		t.Errorf("ImportMnemonic() invalid phrase error = %v, want ErrInvalidMnemonic", err)
	}
}

func TestDeleteWallet(t *testing.T) {
	store := newTestStore(t)

	generated, _ := store.Generate(1, "pw1")
	address := generated[0].Address

	if err := store.Delete(address); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(address); err != storage.ErrWalletNotFound {
		t.Errorf("second Delete() error = %v, want ErrWalletNotFound", err)
	}
}

func TestMasterWallet(t *testing.T) {
	store := newTestStore(t)

	// Not configured initially.
	if _, err := store.ResolveMaster("pw1"); err != storage.ErrNoMasterWallet {
		t.Errorf("ResolveMaster() error = %v, want ErrNoMasterWallet", err)
	}

	created, err := store.CreateMaster("pw1")
	if err != nil {
		t.Fatalf("CreateMaster() error = %v", err)
	}
	if !IsValidAddress(created.Address) {
		t.Errorf("invalid master address %s", created.Address)
	}

	address, _, err := store.MasterInfo()
	if err != nil {
		t.Fatalf("MasterInfo() error = %v", err)
	}
	if address != created.Address {
		t.Errorf("MasterInfo() address = %s, want %s", address, created.Address)
	}

	// Wrong password is a hard error for the master wallet.
	if _, err := store.ResolveMaster("wrong"); err != ErrDecryptFailed {
		t.Errorf("ResolveMaster() wrong password error = %v, want ErrDecryptFailed", err)
	}

	master, err := store.ResolveMaster("pw1")
	if err != nil {
		t.Fatalf("ResolveMaster() error = %v", err)
	}
	if master.Address != created.Address {
		t.Errorf("ResolveMaster() address = %s, want %s", master.Address, created.Address)
	}

	// Setting a new master replaces the old one.
	w, _ := Generate(AlgorithmED25519)
	replaced, err := store.SetMasterFromSeed(w.Seed, "pw2")
	if err != nil {
		t.Fatalf("SetMasterFromSeed() error = %v", err)
	}
	address, _, _ = store.MasterInfo()
	if address != replaced {
		t.Errorf("MasterInfo() after replace = %s, want %s", address, replaced)
	}
}
