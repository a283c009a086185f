package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes from crypto/rand.
// crypto/rand.Read never fails on supported platforms, so a failure panics.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
