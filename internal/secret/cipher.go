// Package secret implements symmetric encryption of single string values
// with a process-wide key, plus the one-time key initialization and
// verification lifecycle.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
)

// KeyLength is the required encryption key length in bytes.
const KeyLength = 32

var (
	ErrInvalidSecretLength = errors.New("encryption key must have length of 32 characters")
	ErrDecryption          = errors.New("unable to decrypt value")
)

// Cipher encrypts and decrypts single string values with AES-256-CBC.
//
// The stored form is "<iv>:<ciphertext>", both hex encoded, where the IV hex
// string is character-reversed before storage. The reversal is not a
// cryptographic measure; it is preserved for compatibility with values
// already at rest.
type Cipher struct {
	key []byte
}

// NewCipher returns a cipher for the given 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidSecretLength
	}
	k := make([]byte, KeyLength)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// Encrypt encrypts plaintext under a fresh random IV. Two calls with the
// same plaintext never produce the same stored form.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return reverseString(hex.EncodeToString(iv)) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt is the inverse of Encrypt. Malformed input or a wrong key yields
// ErrDecryption.
func (c *Cipher) Decrypt(stored string) (string, error) {
	idx := strings.Index(stored, ":")
	if idx < 0 {
		return "", ErrDecryption
	}

	iv, err := hex.DecodeString(reverseString(stored[:idx]))
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrDecryption
	}

	ct, err := hex.DecodeString(stored[idx+1:])
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrDecryption
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryption
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecryption
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecryption
		}
	}
	return data[:len(data)-n], nil
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
