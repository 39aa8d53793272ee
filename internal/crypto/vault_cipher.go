package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize = 16
	keySize  = 32 // 256 bits
)

// vaultCipher is the private implementation of [VaultCipher]: PBKDF2-SHA256
// key derivation followed by AES-256-GCM. The encrypted blob layout is
//
//	base64( salt (16) ‖ nonce (12) ‖ ciphertext )
//
// The salt is generated per encryption, so encrypting the same plaintext
// twice yields different blobs (and different checksums).
type vaultCipher struct{}

// NewVaultCipher constructs the production [VaultCipher].
func NewVaultCipher() VaultCipher {
	return &vaultCipher{}
}

// Encrypt implements [VaultCipher].
func (c *vaultCipher) Encrypt(plaintext []byte, password string, iterations int) (string, error) {
	if iterations <= 0 {
		return "", errors.New("kdf iterations must be positive")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt, iterations)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt implements [VaultCipher]. A wrong password produces a wrong key,
// which surfaces as an authentication-tag mismatch from GCM.
func (c *vaultCipher) Decrypt(ciphertext string, password string, iterations int) ([]byte, error) {
	if iterations <= 0 {
		return nil, errors.New("kdf iterations must be positive")
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(blob) < saltSize {
		return nil, errors.New("ciphertext too short")
	}

	salt, rest := blob[:saltSize], blob[saltSize:]

	gcm, err := newGCM(password, salt, iterations)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
