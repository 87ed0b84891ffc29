package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
)

// Cipher seals and opens stored secret values with a single server-held
// AES-256 key. Every Encrypt call uses a fresh random nonce, prepended to
// the ciphertext, so the same plaintext never produces the same blob twice.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates cipher from a hex encoded 32 byte key
// (the format cmd/gensecret prints)
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("cipher key is not valid hex. Err: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("cipher key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("error while creating cipher. Err: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error while creating AEAD. Err: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("error while generating nonce. Err: %w", err)
	}

	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a blob produced by Encrypt
// Malformed or tampered input always fails with apperrors.ErrDecryption,
// never with partial output
func (c *Cipher) Decrypt(blob []byte) (string, error) {
	if len(blob) < c.aead.NonceSize() {
		return "", apperrors.ErrDecryption
	}

	nonce, ciphertext := blob[:c.aead.NonceSize()], blob[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperrors.ErrDecryption
	}

	return string(plaintext), nil
}
