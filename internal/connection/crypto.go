package connection

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// PasswordCipher encrypts and decrypts SavedConnection passwords at rest
// with NaCl secretbox, a symmetric authenticated cipher keyed by a single
// 32-byte secret held by the composition root.
type PasswordCipher struct {
	key [32]byte
}

// NewPasswordCipher builds a cipher from a 32-byte key. An incorrectly
// sized key is a deployment configuration error, not a runtime one.
func NewPasswordCipher(key []byte) (*PasswordCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("password encryption key must be 32 bytes, got %d", len(key))
	}
	var k [32]byte
	copy(k[:], key)
	return &PasswordCipher{key: k}, nil
}

// Encrypt seals plaintext behind a fresh random nonce, prefixed to the
// returned ciphertext so Decrypt never needs it passed separately.
func (c *PasswordCipher) Encrypt(plaintext string) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %v", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *PasswordCipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < 24 {
		return "", fmt.Errorf("ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("password decryption failed: authentication mismatch")
	}
	return string(plaintext), nil
}
