// Package wallet - XRPL key derivation and signing.
package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/ripemd160"

	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// Algorithm identifies the signing scheme of a key pair.
type Algorithm string

const (
	AlgorithmED25519   Algorithm = "ed25519"
	AlgorithmSECP256K1 Algorithm = "secp256k1"
)

// Family seed version prefixes.
var (
	seedPrefixSecp256k1 = []byte{0x21}
	seedPrefixED25519   = []byte{0x01, 0xe1, 0x4b}
	accountIDPrefix     = []byte{0x00}
)

const seedEntropyLen = 16

// ErrInvalidSeed is returned when a family seed cannot be decoded.
var ErrInvalidSeed = errors.New("invalid family seed")

// KeyPair holds the signing key material derived from a family seed.
type KeyPair struct {
	algorithm Algorithm
	edPriv    ed25519.PrivateKey
	secpPriv  *btcec.PrivateKey
	publicKey []byte // 33 bytes: 0xED||pub for ed25519, compressed point for secp256k1
}

// Algorithm returns the signing scheme.
func (k *KeyPair) Algorithm() Algorithm {
	return k.algorithm
}

// PublicKey returns the 33-byte account public key.
func (k *KeyPair) PublicKey() []byte {
	return k.publicKey
}

// PublicKeyHex returns the account public key as uppercase hex.
func (k *KeyPair) PublicKeyHex() string {
	return helpers.BytesToHex(k.publicKey)
}

// Address returns the classic address derived from the public key:
// base58check(0x00 || RIPEMD160(SHA256(publicKey))).
func (k *KeyPair) Address() string {
	return helpers.EncodeBase58Check(accountIDPrefix, accountID(k.publicKey))
}

// Sign signs transaction signing data. For ed25519 the data is signed
// directly; for secp256k1 it is hashed with SHA-512Half first and the
// signature is canonical DER.
func (k *KeyPair) Sign(signingData []byte) ([]byte, error) {
	switch k.algorithm {
	case AlgorithmED25519:
		return ed25519.Sign(k.edPriv, signingData), nil
	case AlgorithmSECP256K1:
		digest := sha512Half(signingData)
		sig := btcecdsa.Sign(k.secpPriv, digest)
		return sig.Serialize(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", k.algorithm)
	}
}

// GenerateSeed creates a new random family seed for the given algorithm.
func GenerateSeed(alg Algorithm) (string, error) {
	entropy, err := helpers.GenerateSecureRandom(seedEntropyLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return EncodeSeed(entropy, alg)
}

// EncodeSeed encodes 16 bytes of entropy as a family seed string.
func EncodeSeed(entropy []byte, alg Algorithm) (string, error) {
	if len(entropy) != seedEntropyLen {
		return "", fmt.Errorf("entropy must be %d bytes, got %d", seedEntropyLen, len(entropy))
	}
	switch alg {
	case AlgorithmED25519:
		return helpers.EncodeBase58Check(seedPrefixED25519, entropy), nil
	case AlgorithmSECP256K1:
		return helpers.EncodeBase58Check(seedPrefixSecp256k1, entropy), nil
	default:
		return "", fmt.Errorf("unknown algorithm %q", alg)
	}
}

// DecodeSeed decodes a family seed string into its entropy and algorithm.
func DecodeSeed(seed string) ([]byte, Algorithm, error) {
	if entropy, err := helpers.DecodeBase58Check(seed, seedPrefixED25519); err == nil {
		if len(entropy) != seedEntropyLen {
			return nil, "", ErrInvalidSeed
		}
		return entropy, AlgorithmED25519, nil
	}
	if entropy, err := helpers.DecodeBase58Check(seed, seedPrefixSecp256k1); err == nil {
		if len(entropy) != seedEntropyLen {
			return nil, "", ErrInvalidSeed
		}
		return entropy, AlgorithmSECP256K1, nil
	}
	return nil, "", ErrInvalidSeed
}

// DeriveKeyPair derives the signing key pair from a family seed.
func DeriveKeyPair(seed string) (*KeyPair, error) {
	entropy, alg, err := DecodeSeed(seed)
	if err != nil {
		return nil, err
	}
	defer SecureClear(entropy)

	switch alg {
	case AlgorithmED25519:
		return deriveED25519(entropy), nil
	case AlgorithmSECP256K1:
		return deriveSecp256k1(entropy)
	default:
		return nil, ErrInvalidSeed
	}
}

// deriveED25519 derives an ed25519 key pair: the private key seed is
// SHA-512Half of the entropy and the account public key carries an 0xED
// prefix.
func deriveED25519(entropy []byte) *KeyPair {
	privSeed := sha512Half(entropy)
	priv := ed25519.NewKeyFromSeed(privSeed)
	pub := priv.Public().(ed25519.PublicKey)

	publicKey := make([]byte, 0, 33)
	publicKey = append(publicKey, 0xed)
	publicKey = append(publicKey, pub...)

	return &KeyPair{
		algorithm: AlgorithmED25519,
		edPriv:    priv,
		publicKey: publicKey,
	}
}

// deriveSecp256k1 derives the account key pair using the standard two-step
// scheme: a root key from the entropy, then an intermediate key from the
// root public key at account index 0, summed modulo the curve order.
func deriveSecp256k1(entropy []byte) (*KeyPair, error) {
	rootScalar, err := deriveScalar(entropy)
	if err != nil {
		return nil, err
	}

	rootPriv, _ := btcec.PrivKeyFromBytes(scalarBytes(rootScalar))
	rootPub := rootPriv.PubKey().SerializeCompressed()

	// Intermediate key material: rootPub || accountIndex(0) || sequence
	prefix := make([]byte, 0, len(rootPub)+4)
	prefix = append(prefix, rootPub...)
	prefix = append(prefix, 0, 0, 0, 0)

	interScalar, err := deriveScalar(prefix)
	if err != nil {
		return nil, err
	}

	n := btcec.S256().N
	account := new(big.Int).Add(rootScalar, interScalar)
	account.Mod(account, n)
	if account.Sign() == 0 {
		return nil, fmt.Errorf("derived zero account key")
	}

	accountPriv, _ := btcec.PrivKeyFromBytes(scalarBytes(account))

	return &KeyPair{
		algorithm: AlgorithmSECP256K1,
		secpPriv:  accountPriv,
		publicKey: accountPriv.PubKey().SerializeCompressed(),
	}, nil
}

// deriveScalar hashes prefix || be32(seq) with SHA-512Half, incrementing seq
// until the result is a valid curve scalar.
func deriveScalar(prefix []byte) (*big.Int, error) {
	n := btcec.S256().N
	buf := make([]byte, len(prefix)+4)
	copy(buf, prefix)

	for seq := uint32(0); seq < 1000; seq++ {
		binary.BigEndian.PutUint32(buf[len(prefix):], seq)
		candidate := new(big.Int).SetBytes(sha512Half(buf))
		if candidate.Sign() > 0 && candidate.Cmp(n) < 0 {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("failed to derive a valid scalar")
}

func scalarBytes(s *big.Int) []byte {
	return helpers.PadLeft(s.Bytes(), 32)
}

// accountID computes RIPEMD160(SHA256(publicKey)).
func accountID(publicKey []byte) []byte {
	sha := sha256.Sum256(publicKey)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// DecodeAccountID decodes a classic address to its 20-byte account ID.
func DecodeAccountID(address string) ([]byte, error) {
	id, err := helpers.DecodeBase58Check(address, accountIDPrefix)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	if len(id) != 20 {
		return nil, fmt.Errorf("invalid address: account id must be 20 bytes")
	}
	return id, nil
}

// IsValidAddress reports whether a string is a well formed classic address.
func IsValidAddress(address string) bool {
	_, err := DecodeAccountID(address)
	return err == nil
}

// sha512Half returns the first 32 bytes of SHA-512.
func sha512Half(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:32]
}
