// Package secretbox encrypts credential secrets for storage. The at-rest
// token is "hex(iv):hex(ciphertext)" so a stored value is auditable by eye
// and splits unambiguously on the colon.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const ivLength = 16

var (
	// ErrFormat reports an at-rest token that does not have the
	// "hexIV:hexCiphertext" shape.
	ErrFormat = errors.New("invalid at-rest token format")
	// ErrCrypto reports a cipher rejection: wrong key, tampered
	// ciphertext, or a mangled IV.
	ErrCrypto = errors.New("cipher operation failed")
)

// Box seals and opens secrets under a single process-wide key. The key is
// fixed at construction; nothing is read from the environment afterwards.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from operator-supplied key material. A 64-character hex
// string is used directly as the 32-byte key; anything else is treated as a
// passphrase and hashed to key length.
func New(keyMaterial string) (*Box, error) {
	if keyMaterial == "" {
		return nil, errors.New("secretbox: empty key material")
	}
	key := deriveKey(keyMaterial)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	return &Box{aead: aead}, nil
}

func deriveKey(material string) []byte {
	if len(material) == 64 {
		if key, err := hex.DecodeString(material); err == nil {
			return key
		}
	}
	sum := sha256.Sum256([]byte(material))
	return sum[:]
}

// Encrypt seals plaintext under a fresh random IV. Two calls on the same
// plaintext produce different tokens.
func (b *Box) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	sealed := b.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens an at-rest token. It returns ErrFormat when the token does
// not split into two hex halves and ErrCrypto when the cipher refuses the
// IV/ciphertext pair.
func (b *Box) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return "", ErrFormat
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLength {
		return "", ErrFormat
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrFormat
	}
	plaintext, err := b.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return string(plaintext), nil
}
