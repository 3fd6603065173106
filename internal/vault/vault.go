// Package vault seals third-party credentials before they are written to the
// database.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyMissing = errors.New("sealing key not configured")
	ErrTampered   = errors.New("sealed value failed authentication")
)

// Cipher seals values with XChaCha20-Poly1305. The owner id is bound as
// additional data so a sealed value copied to another account will not open.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromHex parses a 64-character hex key.
func NewCipherFromHex(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return nil, ErrKeyMissing
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	return NewCipher(key)
}

// Seal returns nonce || ciphertext.
func (c *Cipher) Seal(owner string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, []byte(owner)), nil
}

func (c *Cipher) Open(owner string, sealed []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrTampered
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(owner))
	if err != nil {
		return nil, ErrTampered
	}
	return plaintext, nil
}
