// Package cryptox wraps the primitives the vault relies on: AES-256-GCM
// sealing, argon2id key derivation, SHA-256 digests and HMAC-SHA256 tags.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/dmitrijs2005/polaris/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the random salt length prepended by SealWithPassphrase.
const SaltSize = 16

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey stretches a passphrase into a 32-byte AES key with argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM and returns nonce||ciphertext.
// A fresh random nonce is drawn for every call.
func Seal(plaintext, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aead.NonceSize())
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Tampered input or a wrong key yields an error.
func Open(sealed, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}

// SealWithPassphrase derives a key from passphrase and a random salt, then
// returns salt||nonce||ciphertext.
func SealWithPassphrase(plaintext, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(SaltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	sealed, err := Seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

// OpenWithPassphrase reverses SealWithPassphrase.
func OpenWithPassphrase(data, passphrase []byte) ([]byte, error) {
	if len(data) < SaltSize {
		return nil, ErrCiphertextTooShort
	}
	key := DeriveKey(passphrase, data[:SaltSize])
	defer common.WipeByteArray(key)

	return Open(data[SaltSize:], key)
}

// HashHex returns the hex SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MACHex returns the hex HMAC-SHA256 of data under key.
func MACHex(data, key []byte) string {
	m := hmac.New(sha256.New, key)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

// EqualHex compares two hex tags in constant time.
func EqualHex(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
