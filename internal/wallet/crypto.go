// Package wallet provides XRPL key material and secure seed storage.
// Only Argon2id + AES-256-GCM is supported for encryption at rest.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// Argon2 parameters (OWASP recommended for password hashing)
const (
	argon2Time        = 3         // Number of iterations
	argon2Memory      = 64 * 1024 // 64 MB memory
	argon2Parallelism = 4         // Parallel threads
	argon2KeyLen      = 32        // Output key length for AES-256
	argon2SaltLen     = 32        // Salt length
)

// ErrDecryptFailed is returned for every decryption failure. A wrong password
// and a corrupted ciphertext are deliberately indistinguishable so the error
// can never leak which one it was.
var ErrDecryptFailed = errors.New("decryption failed")

// EncryptedSecret represents an encrypted wallet seed for storage.
type EncryptedSecret struct {
	Version     int    `json:"version"`
	Ciphertext  []byte `json:"ciphertext"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Time        uint32 `json:"time"`
	Memory      uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
}

// EncryptSecret encrypts a wallet seed using Argon2id + AES-256-GCM and
// returns the serialized ciphertext blob for storage.
func EncryptSecret(secret, password string) ([]byte, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}
	if secret == "" {
		return nil, fmt.Errorf("empty secret")
	}

	// Generate salt
	salt, err := helpers.GenerateSecureRandom(argon2SaltLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// Derive key using Argon2id (resistant to side-channel and GPU attacks)
	key := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Parallelism,
		argon2KeyLen,
	)
	defer SecureClear(key)

	// Create AES-256-GCM cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Generate nonce
	nonce, err := helpers.GenerateSecureRandom(gcm.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Encrypt
	ciphertext := gcm.Seal(nil, nonce, []byte(secret), nil)

	encrypted := &EncryptedSecret{
		Version:     1,
		Ciphertext:  ciphertext,
		Salt:        salt,
		Nonce:       nonce,
		Time:        argon2Time,
		Memory:      argon2Memory,
		Parallelism: argon2Parallelism,
	}

	blob, err := json.Marshal(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}

	return blob, nil
}

// DecryptSecret decrypts a ciphertext blob produced by EncryptSecret.
// Any failure, including a malformed blob, returns ErrDecryptFailed.
func DecryptSecret(blob []byte, password string) (string, error) {
	var encrypted EncryptedSecret
	if err := json.Unmarshal(blob, &encrypted); err != nil {
		return "", ErrDecryptFailed
	}
	if len(encrypted.Salt) == 0 || len(encrypted.Nonce) == 0 {
		return "", ErrDecryptFailed
	}

	// Use stored parameters or defaults
	time := encrypted.Time
	if time == 0 {
		time = argon2Time
	}
	memory := encrypted.Memory
	if memory == 0 {
		memory = argon2Memory
	}
	parallelism := encrypted.Parallelism
	if parallelism == 0 {
		parallelism = argon2Parallelism
	}

	// Derive key using Argon2id
	key := argon2.IDKey(
		[]byte(password),
		encrypted.Salt,
		time,
		memory,
		parallelism,
		argon2KeyLen,
	)
	defer SecureClear(key)

	// Create AES-256-GCM cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrDecryptFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(encrypted.Nonce) != gcm.NonceSize() {
		return "", ErrDecryptFailed
	}

	// Decrypt
	plaintext, err := gcm.Open(nil, encrypted.Nonce, encrypted.Ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}

// SecureClear overwrites a byte slice with zeros.
func SecureClear(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// Password validation constants
const (
	MaxPasswordLength = 256
)

// ValidatePassword validates a password. Strength rules are left to the
// operator; only structural limits are enforced.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}
