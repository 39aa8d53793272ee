// Package adapter provides the transport layer between the wallet engine
// and the remote wallet server.
//
// The primary abstraction is [ServerAdapter], which decouples the engine
// from the wire protocol. The package ships an HTTP implementation
// ([NewHTTPServerAdapter]) built on resty. Transport failures are mapped to
// the sentinel values in errors.go so callers branch with [errors.Is]
// instead of inspecting status codes.
package adapter

import (
	"context"
	"time"

	"github.com/blockvault/walletcore/models"
)

// ServerAdapter defines transport-agnostic communication with the wallet
// server. Implementations own serialization, the session token, and the
// mapping of wire-level failures to this package's sentinel errors.
type ServerAdapter interface {
	// SetToken stores the session bearer token attached to subsequent
	// requests. Called after the server grants a session.
	SetToken(token string)

	// Token returns the stored session token, empty when none is set.
	Token() string

	// TokenExpiresAt reports the expiry of the held session token, zero
	// when no token is held or it carries no expiry claim.
	TokenExpiresAt() time.Time

	// SetCredentials stores the wallet identity (guid and shared key)
	// presented on secure calls. Called by the login flow once the server
	// confirms the guid.
	SetCredentials(guid, sharedKey string)

	// FetchWallet requests the encrypted wallet by guid, optionally
	// presenting a shared key. The response may carry the payload, or
	// auth_type with an empty payload when a second factor must be
	// satisfied first. Returns ErrAuthorizationRequired when the server
	// demands out-of-band session approval.
	FetchWallet(ctx context.Context, guid, sharedKey string) (models.WalletResponse, error)

	// FetchWalletWith2FA resubmits the wallet request with a second-factor
	// code and returns the raw payload body. Returns ErrWrongTwoFactor
	// (wrapped) when the server rejects the code.
	FetchWalletWith2FA(ctx context.Context, guid, code string) (string, error)

	// GetWallet re-fetches the payload conditioned by the last known
	// checksum; the server answers "Not modified" instead of data when
	// nothing changed.
	GetWallet(ctx context.Context, checksum string) (models.WalletResponse, error)

	// UpdateWallet submits a freshly encrypted payload together with its
	// checksum and, when known, the previous checksum for server-side
	// optimistic-concurrency validation.
	UpdateWallet(ctx context.Context, req models.UpdateWalletRequest) error

	// CheckChecksum asks the server to confirm that checksum is what it
	// now stores. Returns ErrChecksumMismatch when it is not.
	CheckChecksum(ctx context.Context, checksum string) error

	// PollSessionGUID performs one round of the authorization-pending
	// poll. An empty guid in the response means approval is still pending.
	PollSessionGUID(ctx context.Context) (models.SessionPollResponse, error)

	// Logout requests a server-side session end. Local state is untouched.
	Logout(ctx context.Context) error
}
