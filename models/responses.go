package models

// NotModified is the sentinel body the server returns instead of wallet data
// when the checksum supplied with a fetch matches the server-side payload.
const NotModified = "Not modified"

// WalletResponse is the server response to a wallet fetch. Besides the
// encrypted payload it carries session-level facts that must be persisted
// even when the payload itself is still gated behind a second factor.
type WalletResponse struct {
	// GUID is the stable wallet identifier. A response without a guid is
	// treated as a hard fetch error.
	GUID string `json:"guid"`

	// Payload is the encrypted wallet blob, empty when a second factor is
	// required before the server releases it, or the literal "Not modified"
	// when the supplied checksum is current.
	Payload string `json:"payload"`

	// AuthType identifies the second-factor mechanism the server demands
	// before releasing the payload; AuthTypeNone when no 2FA is set up.
	AuthType int `json:"auth_type"`

	// RealAuthType is the mechanism actually configured on the account,
	// reported even when the current session already satisfied it.
	RealAuthType int `json:"real_auth_type"`

	// PayloadChecksum is the server-side hash of the stored ciphertext.
	PayloadChecksum string `json:"payload_checksum"`

	// SyncPubKeys reports whether the server expects the client to submit
	// its active address set alongside every payload update.
	SyncPubKeys bool `json:"sync_pubkeys"`

	// Language is the locale tag stored with the wallet.
	Language string `json:"language"`

	// ServerTime is the server wall clock in milliseconds since epoch.
	ServerTime int64 `json:"serverTime"`
}

// HasPayload reports whether the response carries actual wallet data rather
// than an empty or "Not modified" body.
func (r WalletResponse) HasPayload() bool {
	return r.Payload != "" && r.Payload != NotModified
}

// SessionPollResponse is the body of a poll-for-session-guid round. A
// non-empty GUID means the out-of-band authorization has been granted.
type SessionPollResponse struct {
	GUID string `json:"guid"`
}

// UpdateWalletRequest carries a freshly encrypted payload to the server.
type UpdateWalletRequest struct {
	// Payload is the new ciphertext (versioned envelope JSON).
	Payload string `json:"payload"`

	// Length is len(Payload), used by the server as a cheap integrity check.
	Length int `json:"length"`

	// Checksum is the content hash of Payload.
	Checksum string `json:"checksum"`

	// OldChecksum is the previous known checksum, included only when it is
	// a syntactically valid hash. The server rejects the update when it no
	// longer matches its stored payload (optimistic concurrency).
	OldChecksum string `json:"old_checksum,omitempty"`

	// Active is the pipe-joined set of addresses the server should watch,
	// submitted only when sync_pubkeys is enabled for the wallet.
	Active string `json:"active,omitempty"`

	// Language is the locale tag to store with the wallet.
	Language string `json:"language,omitempty"`
}
