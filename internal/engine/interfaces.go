package engine

import (
	"context"

	"github.com/blockvault/walletcore/models"
)

// WalletEngine is the client-facing surface of the wallet engine: the login
// state machine, the checksum-based synchronization protocol and the
// authorization-pending poller, all operating on one shared session.
type WalletEngine interface {
	// Login drives initial authentication for a wallet guid: password
	// fetch, optional second factor, authorization-pending polling. The
	// outcome is delivered through the handler bundle; a session that is
	// already initialized or mid-restore makes the call a silent no-op.
	Login(ctx context.Context, guid, sharedKey, password string, twoFactor *models.TwoFactor, h LoginHandlers)

	// InitializeWallet decrypts ciphertext already held by the session.
	// Same re-entrancy guard as Login.
	InitializeWallet(ctx context.Context, password string, h LoginHandlers)

	// GetWallet is the explicit pull: a checksum-conditioned fetch that is
	// a successful no-op when the server reports no change. Errors never
	// mutate existing session state.
	GetWallet(ctx context.Context) error

	// Sync requests a push of the current wallet state. Calls are
	// coalesced: bursts collapse to one in-flight push plus one trailing
	// push, and every call immediately marks the session not synchronized.
	// Safe to call on every local mutation.
	Sync(ctx context.Context, onSuccess func(), onError func(error))

	// Logout requests a server-side session end. Refused while a push is
	// in flight unless force is set. Local state is never cleared.
	Logout(ctx context.Context, force bool) error

	// LoadCachedPayload seeds the session from the local payload cache,
	// so a client can restore offline with InitializeWallet or start its
	// first fetch with a checksum already in hand.
	LoadCachedPayload(ctx context.Context, guid string) error

	// ForgetCachedPayload drops the locally cached payload of guid.
	ForgetCachedPayload(ctx context.Context, guid string) error

	// IsInitialized reports whether the session holds a decrypted wallet.
	IsInitialized() bool

	// PollForSessionGUID runs the bounded authorization-pending loop; see
	// the method documentation on the implementation.
	PollForSessionGUID(ctx context.Context, continuation func())

	// SetChannelOpener installs the hook that opens the live-update
	// channel. Invoked exactly once, on the first INITIALIZED transition.
	SetChannelOpener(open func())

	// SetHistoryRefresher installs the wallet-layer history refresh hook,
	// invoked after pulls and on live transaction or block notifications.
	SetHistoryRefresher(refresh func(ctx context.Context))
}

// LoginHandlers is the caller-supplied continuation bundle of one login
// attempt. Any handler may be nil; nil handlers are skipped, except
// AuthorizationRequired whose default resumes polling transparently.
type LoginHandlers struct {
	// Success fires when the session reaches INITIALIZED.
	Success func()

	// NeedsTwoFactorCode fires when the server withholds the payload
	// until a second-factor code is supplied. Receives the mechanism id.
	// This is an expected branch, not an error.
	NeedsTwoFactorCode func(authType int)

	// WrongTwoFactorCode fires when the server rejects the supplied code.
	WrongTwoFactorCode func(err error)

	// AuthorizationRequired fires when the server demands out-of-band
	// approval. resume starts the polling loop and, on grant, retries the
	// fetch transparently.
	AuthorizationRequired func(resume func())

	// OtherError fires on every hard failure: transport errors, missing
	// guid, decrypt failure.
	OtherError func(err error)

	// FetchSuccess, DecryptSuccess and BuildHDSuccess are optional
	// progress hooks.
	FetchSuccess   func()
	DecryptSuccess func()
	BuildHDSuccess func()
}

func (h LoginHandlers) success() {
	if h.Success != nil {
		h.Success()
	}
}

func (h LoginHandlers) needsTwoFactorCode(authType int) {
	if h.NeedsTwoFactorCode != nil {
		h.NeedsTwoFactorCode(authType)
	}
}

func (h LoginHandlers) wrongTwoFactorCode(err error) {
	if h.WrongTwoFactorCode != nil {
		h.WrongTwoFactorCode(err)
	}
}

func (h LoginHandlers) otherError(err error) {
	if h.OtherError != nil {
		h.OtherError(err)
	}
}

func (h LoginHandlers) fetchSuccess() {
	if h.FetchSuccess != nil {
		h.FetchSuccess()
	}
}

func (h LoginHandlers) decryptSuccess() {
	if h.DecryptSuccess != nil {
		h.DecryptSuccess()
	}
}

func (h LoginHandlers) buildHDSuccess() {
	if h.BuildHDSuccess != nil {
		h.BuildHDSuccess()
	}
}
