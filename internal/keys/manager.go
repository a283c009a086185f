package keys

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/cryptox"
	"github.com/dmitrijs2005/polaris/internal/logging"
)

var ErrInvalidKey = errors.New("invalid key material")

// Store is the key/value persistence the manager needs.
type Store interface {
	GetEncryptionKey(ctx context.Context) ([]byte, error)
	SaveEncryptionKey(ctx context.Context, key []byte) error
	GetIdentityKey(ctx context.Context) (string, error)
	SaveIdentityKey(ctx context.Context, sealed string) error
}

// Manager caches the vault key and identity for the process lifetime.
type Manager struct {
	store Store
	log   logging.Logger

	mu       sync.Mutex
	key      []byte
	identity ed25519.PrivateKey
}

func NewManager(store Store, log logging.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// EnsureKey returns the vault key, creating and persisting it on first use.
func (m *Manager) EnsureKey(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureKeyLocked(ctx)
}

func (m *Manager) ensureKeyLocked(ctx context.Context) ([]byte, error) {
	if m.key != nil {
		return bytes.Clone(m.key), nil
	}

	key, err := m.store.GetEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}
	if key != nil && len(key) != common.EncryptionKeySize {
		return nil, fmt.Errorf("%w: stored key has %d bytes", ErrInvalidKey, len(key))
	}

	if key == nil {
		key = common.GenerateRandByteArray(common.EncryptionKeySize)
		if err := m.store.SaveEncryptionKey(ctx, key); err != nil {
			return nil, err
		}
		m.log.Info(ctx, "vault key created")
	}

	m.key = key
	return bytes.Clone(key), nil
}

// EnsureIdentity returns the identity public key, generating the key pair on
// first use.
func (m *Manager) EnsureIdentity(ctx context.Context) (ed25519.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priv, err := m.identityLocked(ctx)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

func (m *Manager) identityLocked(ctx context.Context) (ed25519.PrivateKey, error) {
	if m.identity != nil {
		return m.identity, nil
	}

	key, err := m.ensureKeyLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	sealed, err := m.store.GetIdentityKey(ctx)
	if err != nil {
		return nil, err
	}

	if sealed != "" {
		raw, err := base64.StdEncoding.DecodeString(sealed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		seed, err := cryptox.Open(raw, key)
		if err != nil {
			return nil, fmt.Errorf("%w: unseal identity: %w", ErrInvalidKey, err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: identity seed has %d bytes", ErrInvalidKey, len(seed))
		}
		m.identity = ed25519.NewKeyFromSeed(seed)
		common.WipeByteArray(seed)
		return m.identity, nil
	}

	seed := common.GenerateRandByteArray(ed25519.SeedSize)
	defer common.WipeByteArray(seed)

	raw, err := cryptox.Seal(seed, key)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveIdentityKey(ctx, base64.StdEncoding.EncodeToString(raw)); err != nil {
		return nil, err
	}
	m.identity = ed25519.NewKeyFromSeed(seed)
	m.log.Info(ctx, "identity key pair created")
	return m.identity, nil
}

// SignIdentity signs Hash(data) with the identity private key.
func (m *Manager) SignIdentity(ctx context.Context, data string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priv, err := m.identityLocked(ctx)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, []byte(Hash(data)))
	return hex.EncodeToString(sig), nil
}

// Verify checks an identity signature produced by SignIdentity against a
// hex-encoded public key.
func Verify(data, signature, publicKey string) (bool, error) {
	pub, err := hex.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key", ErrInvalidKey)
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("%w: signature encoding", ErrInvalidKey)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(Hash(data)), sig), nil
}

// Encrypt seals plaintext under key.
func Encrypt(plaintext string, key []byte) (string, error) {
	sealed, err := cryptox.Seal([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	pt, err := cryptox.Open(raw, key)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// EncryptJSON marshals v and encrypts the JSON text.
func EncryptJSON(v any, key []byte) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Encrypt(string(b), key)
}

// DecryptJSON decrypts ciphertext and unmarshals it into v.
func DecryptJSON(ciphertext string, key []byte, v any) error {
	pt, err := Decrypt(ciphertext, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(pt), v)
}

// EncryptWithPassphrase protects data for export outside the vault.
func EncryptWithPassphrase(data, passphrase []byte) (string, error) {
	sealed, err := cryptox.SealWithPassphrase(data, passphrase)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptWithPassphrase reverses EncryptWithPassphrase.
func DecryptWithPassphrase(ciphertext string, passphrase []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}
	return cryptox.OpenWithPassphrase(raw, passphrase)
}

// Hash is the one-way digest used throughout the vault.
func Hash(data string) string {
	return cryptox.HashHex([]byte(data))
}

// Sign returns a keyed digest over Hash(data).
func Sign(data string, key []byte) string {
	return cryptox.MACHex([]byte(Hash(data)), key)
}

// CheckSign reports whether signature equals Sign(data, key).
func CheckSign(data, signature string, key []byte) bool {
	return cryptox.EqualHex(Sign(data, key), signature)
}
