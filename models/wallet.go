package models

import "encoding/json"

// WalletState is the decrypted working copy of the wallet. Its business
// internals (key material, derivation) belong to the wallet layer; the sync
// engine only consumes the fields below and round-trips everything else
// untouched through Extra.
type WalletState struct {
	// GUID is the wallet identifier, mirrored from the session.
	GUID string `json:"guid"`

	// SharedKey is the secondary server credential. Pushes are refused
	// until it is a well-formed 36-character UUID.
	SharedKey string `json:"sharedKey"`

	// ActiveAddresses is the set of non-archived plain addresses.
	ActiveAddresses []string `json:"active_addresses,omitempty"`

	// HD carries the hierarchical-deterministic portion of the wallet when
	// the wallet has been upgraded; nil otherwise.
	HD *HDWallet `json:"hd_wallet,omitempty"`

	// UpgradedToHD selects the payload version tag on encryption: version
	// 3 for HD wallets, version 2 for legacy ones.
	UpgradedToHD bool `json:"upgraded_to_hd"`

	// EncryptionConsistent is cleared by the wallet layer when an
	// encrypt/decrypt round trip over its own key material failed. A wallet
	// in that state must never be pushed.
	EncryptionConsistent bool `json:"encryption_consistent"`

	// LatestBlock is the most recently observed chain tip, maintained by
	// the change notifier.
	LatestBlock *Block `json:"-"`

	// Extra preserves wallet fields this engine does not interpret so that
	// serialize-encrypt-push never drops data owned by the wallet layer.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// HDWallet is the slice of the HD hierarchy the engine consumes.
type HDWallet struct {
	Accounts []HDAccount `json:"accounts"`
}

// HDAccount exposes the derived addresses the server should be told about
// when public-key sync is enabled.
type HDAccount struct {
	// ActiveXpub is the account's extended public key, advertised on the
	// change-notification channel.
	ActiveXpub string `json:"xpub"`

	// LabeledReceivingAddresses are derived addresses the user has labeled
	// and therefore expects activity notifications for.
	LabeledReceivingAddresses []string `json:"labeled_receiving_addresses,omitempty"`
}

// ActiveXpubs collects the extended public keys of all HD accounts.
func (w *WalletState) ActiveXpubs() []string {
	if w.HD == nil {
		return nil
	}
	xpubs := make([]string, 0, len(w.HD.Accounts))
	for _, acct := range w.HD.Accounts {
		if acct.ActiveXpub != "" {
			xpubs = append(xpubs, acct.ActiveXpub)
		}
	}
	return xpubs
}

// WatchedAddresses returns the union of plain active addresses and labeled
// derived addresses. Order is not significant and duplicates are allowed;
// the server treats the set as a hint, not a registry.
func (w *WalletState) WatchedAddresses() []string {
	addrs := make([]string, 0, len(w.ActiveAddresses))
	addrs = append(addrs, w.ActiveAddresses...)
	if w.HD != nil {
		for _, acct := range w.HD.Accounts {
			addrs = append(addrs, acct.LabeledReceivingAddresses...)
		}
	}
	return addrs
}

// Block is a chain-tip descriptor delivered on the push channel.
type Block struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
	Time   int64  `json:"time"`
}
