package engine

import "errors"

var (
	// ErrNotInitialized marks an operation that needs a decrypted wallet
	// before the session has one.
	ErrNotInitialized = errors.New("wallet session not initialized")

	// ErrInvalidTwoFactor marks a second-factor credential that fails the
	// login precondition (empty code, oversized code, negative type).
	ErrInvalidTwoFactor = errors.New("invalid two factor credential")

	// ErrInvalidSharedKey marks a wallet whose shared key is not a
	// well-formed 36-character identifier. Such a wallet is never pushed.
	ErrInvalidSharedKey = errors.New("shared key must be a 36 character uuid")

	// ErrWalletCorruption marks a failed post-encryption self check. The
	// freshly produced ciphertext could not be decrypted back, so it is
	// never transmitted.
	ErrWalletCorruption = errors.New("wallet ciphertext failed decrypt self check")

	// ErrWritesRefused marks a session whose wallet reported an
	// encryption consistency violation. Every subsequent push is refused
	// for the rest of the session.
	ErrWritesRefused = errors.New("wallet writes refused after encryption consistency violation")

	// ErrNoPayload marks a wallet response that carries neither a payload
	// nor a second-factor challenge.
	ErrNoPayload = errors.New("server returned no wallet payload")

	// ErrLogoutDisabled marks a logout attempt while a push is in flight.
	ErrLogoutDisabled = errors.New("logout is disabled while a push is in flight")
)
