package crypto

import (
	"crypto/sha256"
	"errors"
)

// ErrMissingMasterKey is returned by NewCodec when no master secret is
// configured. Construction must fail fast: lazily failing on first use would
// let the process serve traffic it can never decrypt.
var ErrMissingMasterKey = errors.New("master key must be set to handle secret values")

// Codec encrypts and decrypts individual secret values under a key derived
// once from the process master secret. The key material is immutable after
// construction; the codec is safe for concurrent use.
//
// It is an explicitly constructed service object, passed by injection to
// every component that needs it, so a later move to rotated or per-tenant
// keys does not require a rewrite.
type Codec struct {
	key []byte
}

// NewCodec derives a fixed-length AES-256 key from the master secret via
// SHA-256 and returns a ready-to-use codec. An empty master secret is a
// construction error.
func NewCodec(masterKey string) (*Codec, error) {
	if masterKey == "" {
		return nil, ErrMissingMasterKey
	}
	sum := sha256.Sum256([]byte(masterKey))
	return &Codec{key: sum[:]}, nil
}

// Encrypt encrypts a single plaintext value. The empty string short-circuits
// to the empty string without touching the cipher, so "no value" is never
// turned into ciphertext.
func (c *Codec) Encrypt(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}
	return encryptWithKey(plainText, c.key)
}

// Decrypt decrypts a single ciphertext value. The empty string
// short-circuits to the empty string, mirroring Encrypt.
//
// A failure here means the ciphertext is unreadable under the current key
// (typically a master-key mismatch), not that the caller lacks permission;
// callers surface it as a server-side fault.
func (c *Codec) Decrypt(cipherText string) (string, error) {
	if cipherText == "" {
		return "", nil
	}
	return decryptWithKey(cipherText, c.key)
}
