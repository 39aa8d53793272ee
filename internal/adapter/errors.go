package adapter

import "errors"

var (
	// ErrAuthorizationRequired marks a fetch the server refused pending
	// out-of-band approval (another device must confirm the session).
	// Distinct from a hard failure: the caller is expected to start
	// polling and retry.
	ErrAuthorizationRequired = errors.New("authorization required")

	// ErrUnauthorized marks a rejected credential (401).
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrWrongTwoFactor marks a rejected second-factor code.
	ErrWrongTwoFactor = errors.New("wrong two factor code")

	// ErrChecksumMismatch marks a post-push checksum verification that did
	// not confirm the submitted payload. Distinct from a transport error:
	// the update call itself succeeded.
	ErrChecksumMismatch = errors.New("checksum did not match expected value")

	// ErrEmptyGUID marks a wallet response carrying no guid, which the
	// login flow treats as a hard fetch error.
	ErrEmptyGUID = errors.New("server returned null guid")
)
