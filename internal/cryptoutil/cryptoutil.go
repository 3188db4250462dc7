// Package cryptoutil implements the fixed primitive suite pinned by the
// MyFS on-disk format: SHA-256, MD5, PBKDF2-HMAC-SHA1 key derivation, and
// AES in ECB mode with PKCS#7 padding. These are pure functions over byte
// buffers; none of them touch the filesystem.
package cryptoutil

import (
	"crypto/aes"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

// PBKDF2Salt is the fixed salt pinned by the on-disk format. It is not a
// per-password random salt; the format trades that for compatibility with
// volumes created by earlier tooling (see spec §9).
const PBKDF2Salt = "IVOLFILESYSTEM"

// PBKDF2Iterations is the fixed iteration count pinned by the format.
const PBKDF2Iterations = 10

// derivedKeyLen is the AES-256 key length produced by DeriveKey.
const derivedKeyLen = 32

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// MD5 returns the MD5 digest of data.
func MD5(data []byte) [16]byte {
	return md5.Sum(data)
}

// DeriveKey derives a 32-byte AES-256 key from a password's SHA-256 hash
// using PBKDF2-HMAC-SHA1 with the format's fixed salt and iteration count.
func DeriveKey(passwordHash [32]byte) [32]byte {
	key := pbkdf2.Key(passwordHash[:], []byte(PBKDF2Salt), PBKDF2Iterations, derivedKeyLen, sha1.New)
	var out [32]byte
	copy(out[:], key)
	return out
}

// RandomBytes returns n cryptographically strong random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, myfserr.Wrap(myfserr.KindCryptoError, "generating random bytes", err)
	}
	return buf, nil
}

// padPKCS7 pads data to a multiple of blockSize using PKCS#7.
func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// unpadPKCS7 strips PKCS#7 padding, failing when the pad length is out of
// range or the padding bytes are not all equal to the pad length.
func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, myfserr.New(myfserr.KindCryptoError, "cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > 16 || padLen > len(data) {
		return nil, myfserr.New(myfserr.KindCryptoError, "invalid PKCS#7 padding length")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, myfserr.New(myfserr.KindCryptoError, "invalid PKCS#7 padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}

// AESECBEncrypt PKCS#7-pads plaintext to a 16-byte multiple and encrypts it
// block-by-block in ECB mode. The key length selects the AES variant: 16
// bytes for AES-128, 32 for AES-256 (the MyFS format always uses 32-byte
// derived keys, i.e. AES-256).
func AESECBEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, myfserr.Wrap(myfserr.KindCryptoError, "creating AES cipher", err)
	}
	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	for off := 0; off < len(padded); off += aes.BlockSize {
		block.Encrypt(ciphertext[off:off+aes.BlockSize], padded[off:off+aes.BlockSize])
	}
	return ciphertext, nil
}

// AESECBDecrypt decrypts ciphertext block-by-block in ECB mode and strips
// PKCS#7 padding, failing with a CryptoError when the padding is invalid.
func AESECBDecrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, myfserr.New(myfserr.KindCryptoError, "ciphertext is not a multiple of the AES block size")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, myfserr.Wrap(myfserr.KindCryptoError, "creating AES cipher", err)
	}
	padded := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += aes.BlockSize {
		block.Decrypt(padded[off:off+aes.BlockSize], ciphertext[off:off+aes.BlockSize])
	}
	return unpadPKCS7(padded)
}
