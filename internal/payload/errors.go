package payload

import "errors"

var (
	// ErrDecryption marks a failed payload decryption: wrong password or
	// corrupt ciphertext. Callers distinguish it from structural parse
	// failure, which is not an error at all (legacy fallback).
	ErrDecryption = errors.New("wallet payload decryption failed")

	// ErrEncryption marks empty or failed cipher output during a push.
	// Treated as corruption, never as an empty-wallet case.
	ErrEncryption = errors.New("wallet payload encryption failed")
)
