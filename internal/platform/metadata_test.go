package platform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/myfs/internal/cryptoutil"
)

func TestMetadataPackUnpackRoundTrip(t *testing.T) {
	m := Metadata{
		Platform:           "Linux",
		Arch:               "64bit",
		Release:            "6.1.0",
		Machine:            "x86_64",
		Processor:          "Generic CPU",
		AccessPasswordHash: cryptoutil.SHA256([]byte("hunter2")),
	}

	packed := m.Pack()
	require.Len(t, packed, MetadataSize)

	got, err := Unpack(packed)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMetadataSameHostIgnoresPasswordHash(t *testing.T) {
	a := Current(cryptoutil.SHA256([]byte("pw1")))
	b := Current(cryptoutil.SHA256([]byte("pw2")))
	require.True(t, a.SameHost(b))
}

func TestMetadataEncryptDecryptRoundTrip(t *testing.T) {
	key, err := cryptoutil.RandomBytes(32)
	require.NoError(t, err)

	m := Current([32]byte{})
	ciphertext, err := m.EncryptedPack(key)
	require.NoError(t, err)

	got, err := DecryptMetadata(key, ciphertext)
	require.NoError(t, err)
	require.True(t, m.SameHost(got))
	require.Equal(t, m.AccessPasswordHash, got.AccessPasswordHash)
}

func TestMetadataHashDeterministic(t *testing.T) {
	m := Current([32]byte{})
	require.Equal(t, m.Hash(), m.Hash())
}
