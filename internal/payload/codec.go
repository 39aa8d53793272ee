// Package payload implements the versioned encrypted-wallet envelope: the
// JSON wrapper {pbkdf2_iterations, version, payload} the server stores, and
// its legacy unversioned predecessor. Actual cryptography is delegated to
// the crypto package's VaultCipher.
package payload

import (
	"encoding/json"
	"fmt"

	"github.com/blockvault/walletcore/internal/crypto"
	"github.com/blockvault/walletcore/models"
)

// Codec parses and produces wallet payload envelopes.
type Codec struct {
	cipher crypto.VaultCipher
}

// NewCodec constructs a Codec around the given cipher primitive.
func NewCodec(cipher crypto.VaultCipher) *Codec {
	return &Codec{cipher: cipher}
}

// envelopeWire is the on-the-wire wrapper. Ciphertext is decoded as
// RawMessage first so that a wrapper-shaped JSON with a non-string payload
// field still falls back to the legacy branch instead of erroring.
type envelopeWire struct {
	Iterations int             `json:"pbkdf2_iterations"`
	Version    int             `json:"version"`
	Payload    json.RawMessage `json:"payload"`
}

// Parse interprets raw as a versioned envelope. Malformed or legacy input
// is a supported shape, not an error: anything that does not parse as the
// JSON wrapper becomes a version-1 envelope whose ciphertext is raw
// verbatim. Parse therefore never fails.
func (c *Codec) Parse(raw string) models.Envelope {
	legacy := models.Envelope{
		Version:    models.LegacyVersion,
		Iterations: models.DefaultIterations,
		Ciphertext: raw,
	}

	var wire envelopeWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return legacy
	}

	var ciphertext string
	if err := json.Unmarshal(wire.Payload, &ciphertext); err != nil || ciphertext == "" {
		return legacy
	}

	env := models.Envelope{
		Version:    wire.Version,
		Iterations: wire.Iterations,
		Ciphertext: ciphertext,
	}
	if env.Iterations <= 0 {
		env.Iterations = models.DefaultIterations
	}
	if env.Version <= 0 {
		env.Version = models.DefaultVersion
	}
	return env
}

// Decrypt recovers the wallet state from an envelope using the KDF
// parameters the envelope carries. Failures wrap ErrDecryption so callers
// can tell a wrong password from a transport problem.
func (c *Codec) Decrypt(env models.Envelope, password string) (*models.WalletState, error) {
	plaintext, err := c.cipher.Decrypt(env.Ciphertext, password, env.Iterations)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	wallet := &models.WalletState{EncryptionConsistent: true}
	if err := json.Unmarshal(plaintext, wallet); err != nil {
		return nil, fmt.Errorf("%w: decode wallet json: %v", ErrDecryption, err)
	}

	return wallet, nil
}

// Encrypt produces the versioned envelope JSON for a serialized wallet.
// The result is the exact string that is checksummed, stored in the session
// and submitted to the server. Empty cipher output is corruption.
func (c *Codec) Encrypt(walletJSON []byte, password string, iterations, version int) (string, error) {
	if iterations <= 0 {
		iterations = models.DefaultIterations
	}

	ciphertext, err := c.cipher.Encrypt(walletJSON, password, iterations)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	if ciphertext == "" {
		return "", fmt.Errorf("%w: cipher returned empty output", ErrEncryption)
	}

	wrapped, err := json.Marshal(models.Envelope{
		Version:    version,
		Iterations: iterations,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode envelope: %v", ErrEncryption, err)
	}

	return string(wrapped), nil
}
