package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAESECBRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("short"),
		make([]byte, 16),
		make([]byte, 4087),
		[]byte("exactly sixteen!"),
	}

	hash := SHA256([]byte("correct horse battery staple"))
	key := DeriveKey(hash)

	for _, plaintext := range cases {
		ciphertext, err := AESECBEncrypt(key[:], plaintext)
		require.NoError(t, err)
		require.Equal(t, 0, len(ciphertext)%16)

		got, err := AESECBDecrypt(key[:], ciphertext)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestAESECBDecryptRejectsBadPadding(t *testing.T) {
	hash := SHA256([]byte("pw"))
	key := DeriveKey(hash)

	ciphertext, err := AESECBEncrypt(key[:], []byte("hello world"))
	require.NoError(t, err)

	// Flip the last byte so the decrypted padding no longer validates.
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = AESECBDecrypt(key[:], ciphertext)
	require.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	hash := SHA256([]byte("same password"))
	k1 := DeriveKey(hash)
	k2 := DeriveKey(hash)
	require.Equal(t, k1, k2)

	otherHash := SHA256([]byte("different password"))
	k3 := DeriveKey(otherHash)
	require.NotEqual(t, k1, k3)
}

func TestRandomBytesLength(t *testing.T) {
	b, err := RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, b, 32)
}
