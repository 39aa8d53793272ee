package crypto

// VaultCipher is the symmetric-cipher/KDF primitive the payload codec
// delegates to. It knows nothing about envelopes, sessions, or the network;
// its only job is password-based encryption of opaque byte strings.
//
// The contract the sync engine depends on:
//
//	plain == Decrypt(Encrypt(plain, pw, n), pw, n)   for any pw, n > 0
//
// and Decrypt fails with an error (never garbage output) on a wrong
// password or corrupted ciphertext.
type VaultCipher interface {
	// Encrypt derives a key from password with the given KDF iteration
	// count and returns the encrypted, text-safe form of plaintext.
	Encrypt(plaintext []byte, password string, iterations int) (string, error)

	// Decrypt reverses Encrypt. The iteration count must match the one
	// used at encryption time; it travels in the payload envelope, not in
	// the ciphertext itself.
	Decrypt(ciphertext string, password string, iterations int) ([]byte, error)
}
