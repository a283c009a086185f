package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 32)
	assert.Equal(t, "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39", hex.EncodeToString(key1))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")
	assert.NotEqual(t, DeriveKey(password, []byte("salt-1")), DeriveKey(password, []byte("salt-2")))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	plaintext := []byte(`{"latitude":56.95,"longitude":24.1}`)

	sealed1, err := Seal(plaintext, key)
	require.NoError(t, err)
	sealed2, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, sealed1, sealed2, "nonce must differ per call")

	got, err := Open(sealed1, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_Failures(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	sealed, err := Seal([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Open(sealed, common.GenerateRandByteArray(32))
	require.Error(t, err, "wrong key")

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(tampered, key)
	require.Error(t, err, "tampered tag")

	_, err = Open([]byte{1, 2}, key)
	require.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = Seal([]byte("x"), []byte("short"))
	require.Error(t, err, "invalid key size")
}

func TestPassphrase_RoundTrip(t *testing.T) {
	data, err := SealWithPassphrase([]byte("export"), []byte("correct horse"))
	require.NoError(t, err)

	got, err := OpenWithPassphrase(data, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, []byte("export"), got)

	_, err = OpenWithPassphrase(data, []byte("wrong"))
	require.Error(t, err)

	_, err = OpenWithPassphrase([]byte{1}, []byte("x"))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestHashAndMAC(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashHex(nil))
	assert.Len(t, HashHex([]byte("abc")), 64)

	// RFC 4231 test case 2
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		MACHex([]byte("what do ya want for nothing?"), []byte("Jefe")))

	assert.True(t, EqualHex("ab", "ab"))
	assert.False(t, EqualHex("ab", "ac"))
}
