package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"
)

// The well-known "masterpassphrase" root account keys.
const (
	rootSeed    = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	rootAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	rootPubKey  = "0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020"
)

func TestDeriveSecp256k1KnownVector(t *testing.T) {
	keys, err := DeriveKeyPair(rootSeed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	if keys.Algorithm() != AlgorithmSECP256K1 {
		t.Errorf("Algorithm() = %s, want secp256k1", keys.Algorithm())
	}
	if got := keys.PublicKeyHex(); got != rootPubKey {
		t.Errorf("PublicKeyHex() = %s, want %s", got, rootPubKey)
	}
	if got := keys.Address(); got != rootAddress {
		t.Errorf("Address() = %s, want %s", got, rootAddress)
	}
}

func TestSeedRoundtrip(t *testing.T) {
	entropy, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatal(err)
	}

	for _, alg := range []Algorithm{AlgorithmED25519, AlgorithmSECP256K1} {
		seed, err := EncodeSeed(entropy, alg)
		if err != nil {
			t.Fatalf("EncodeSeed(%s) error = %v", alg, err)
		}
		if seed[0] != 's' {
			t.Errorf("seed %s should start with 's'", seed)
		}

		decoded, gotAlg, err := DecodeSeed(seed)
		if err != nil {
			t.Fatalf("DecodeSeed(%s) error = %v", seed, err)
		}
		if gotAlg != alg {
			t.Errorf("DecodeSeed algorithm = %s, want %s", gotAlg, alg)
		}
		if hex.EncodeToString(decoded) != "000102030405060708090a0b0c0d0e0f" {
			t.Errorf("entropy roundtrip failed for %s", alg)
		}
	}
}

func TestED25519SeedPrefix(t *testing.T) {
	seed, err := GenerateSeed(AlgorithmED25519)
	if err != nil {
		t.Fatalf("GenerateSeed() error = %v", err)
	}
	if !strings.HasPrefix(seed, "sEd") {
		t.Errorf("ed25519 seed %s should start with sEd", seed)
	}
}

func TestDecodeSeedInvalid(t *testing.T) {
	for _, seed := range []string{"", "notaseed", rootAddress, "sEdInvalid000000"} {
		if _, _, err := DecodeSeed(seed); err == nil {
			t.Errorf("DecodeSeed(%s) should fail", seed)
		}
	}
}

func TestDerivationDeterministic(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmED25519, AlgorithmSECP256K1} {
		seed, err := GenerateSeed(alg)
		if err != nil {
			t.Fatalf("GenerateSeed(%s) error = %v", alg, err)
		}

		a, err := DeriveKeyPair(seed)
		if err != nil {
			t.Fatalf("DeriveKeyPair() error = %v", err)
		}
		b, err := DeriveKeyPair(seed)
		if err != nil {
			t.Fatalf("DeriveKeyPair() second error = %v", err)
		}

		if a.Address() != b.Address() {
			t.Errorf("%s: same seed derived different addresses: %s vs %s", alg, a.Address(), b.Address())
		}
		if a.PublicKeyHex() != b.PublicKeyHex() {
			t.Errorf("%s: same seed derived different public keys", alg)
		}
	}
}

func TestED25519PublicKeyPrefix(t *testing.T) {
	seed, _ := GenerateSeed(AlgorithmED25519)
	keys, err := DeriveKeyPair(seed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	pub := keys.PublicKey()
	if len(pub) != 33 {
		t.Fatalf("public key length = %d, want 33", len(pub))
	}
	if pub[0] != 0xed {
		t.Errorf("ed25519 public key prefix = %#x, want 0xed", pub[0])
	}
}

func TestED25519SignVerify(t *testing.T) {
	seed, _ := GenerateSeed(AlgorithmED25519)
	keys, err := DeriveKeyPair(seed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	msg := []byte("signing data")
	sig, err := keys.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	pub := ed25519.PublicKey(keys.PublicKey()[1:])
	if !ed25519.Verify(pub, msg, sig) {
		t.Error("signature did not verify")
	}
}

func TestSecp256k1SignProducesDER(t *testing.T) {
	keys, err := DeriveKeyPair(rootSeed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	sig, err := keys.Sign([]byte("signing data"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if len(sig) == 0 || sig[0] != 0x30 {
		t.Errorf("expected DER sequence, got %x", sig)
	}
}

func TestAddressValidation(t *testing.T) {
	if !IsValidAddress(rootAddress) {
		t.Errorf("IsValidAddress(%s) = false, want true", rootAddress)
	}

	for _, addr := range []string{"", "xrp", rootSeed, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTi"} {
		if IsValidAddress(addr) {
			t.Errorf("IsValidAddress(%s) = true, want false", addr)
		}
	}

	id, err := DecodeAccountID(rootAddress)
	if err != nil {
		t.Fatalf("DecodeAccountID() error = %v", err)
	}
	if len(id) != 20 {
		t.Errorf("account id length = %d, want 20", len(id))
	}
}
