package wallet

import (
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	secret := "sEdExampleSeedValue111111111"
	password := "correct-horse"

	blob, err := EncryptSecret(secret, password)
	if err != nil {
		t.Fatalf("EncryptSecret() error = %v", err)
	}

	got, err := DecryptSecret(blob, password)
	if err != nil {
		t.Fatalf("DecryptSecret() error = %v", err)
	}
	if got != secret {
		t.Errorf("DecryptSecret() = %s, want %s", got, secret)
	}
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	secret := "sEdExampleSeedValue111111111"
	password := "pw1"

	a, err := EncryptSecret(secret, password)
	if err != nil {
		t.Fatalf("EncryptSecret() error = %v", err)
	}
	b, err := EncryptSecret(secret, password)
	if err != nil {
		t.Fatalf("EncryptSecret() error = %v", err)
	}

	// Fresh salt and nonce every time.
	if string(a) == string(b) {
		t.Error("two encryptions of the same secret produced identical blobs")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("topsecret", "pw1")
	if err != nil {
		t.Fatalf("EncryptSecret() error = %v", err)
	}

	if _, err := DecryptSecret(blob, "wrong"); err != ErrDecryptFailed {
		t.Errorf("DecryptSecret() wrong password error = %v, want ErrDecryptFailed", err)
	}
}

func TestDecryptMalformedBlob(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte(`{"version":1}`),
		[]byte(`{"version":1,"ciphertext":"AQID","salt":"AQID","nonce":"AQID"}`),
		[]byte(`{"version":1,"ciphertext":"AQID","salt":"AQID","nonce":"AAAAAAAAAAAAAAAAAAAAAA=="}`),
	}

	// Every malformation is indistinguishable from a wrong password.
	for _, blob := range cases {
		if _, err := DecryptSecret(blob, "pw1"); err != ErrDecryptFailed {
			t.Errorf("DecryptSecret(%q) error = %v, want ErrDecryptFailed", blob, err)
		}
	}
}

func TestEncryptRejectsEmptyInputs(t *testing.T) {
	if _, err := EncryptSecret("", "pw1"); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := EncryptSecret("secret", ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestSecureClear(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	SecureClear(data)
	for i, v := range data {
		if v != 0 {
			t.Errorf("data[%d] = %d, want 0", i, v)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("pw1"); err != nil {
		t.Errorf("ValidatePassword(pw1) error = %v", err)
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("expected error for empty password")
	}

	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidatePassword(string(long)); err == nil {
		t.Error("expected error for oversized password")
	}
}
