// Package common contains shared constants and sentinel errors used across
// Polaris components.
package common

// Key-value slot names in the metadata table.
const (
	MetadataKeyUser          = "user"
	MetadataKeyEncryptionKey = "encryption_key"
	MetadataKeyIdentityKey   = "identity_key"
)

// EncryptionKeySize is the length of the process-wide symmetric key in bytes.
const EncryptionKeySize = 32
