// Package keys manages the vault's process-wide secrets.
//
// The vault key is 32 random bytes created on first run, persisted hex
// encoded in the encryption_key slot and returned unchanged afterwards. It
// is used to encrypt serialized JSON payloads and to seal the identity key.
//
// The identity is an Ed25519 key pair. Its private key is stored sealed
// under the vault key in the identity_key slot; the public key is published
// on the User record. Verify performs real signature verification.
//
// Encoded forms:
//
//	Encrypt / EncryptJSON        base64(nonce || AES-256-GCM ciphertext)
//	EncryptWithPassphrase        base64(salt || nonce || ciphertext), argon2id key
//	Hash                         hex SHA-256
//	Sign                         hex HMAC-SHA256 over Hash(data)
//	SignIdentity                 hex Ed25519 signature over Hash(data)
package keys
