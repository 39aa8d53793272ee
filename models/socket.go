package models

import "encoding/json"

// Push-channel operation names.
const (
	SocketOpChange = "on_change"
	SocketOpUtx    = "utx"
	SocketOpBlock  = "block"
)

// SocketMessage is a frame received on the change-notification channel.
// Frames that do not parse into this shape are logged and dropped; the
// channel itself is never torn down over a bad frame.
type SocketMessage struct {
	// Op discriminates the message: on_change, utx, or block.
	Op string `json:"op"`

	// Checksum accompanies on_change and is the server's current payload
	// checksum.
	Checksum string `json:"checksum"`

	// X is the op-specific body: a block header for block messages, a
	// transaction for utx. Left opaque where the engine does not consume it.
	X json.RawMessage `json:"x,omitempty"`
}

// SocketSubscription is sent once after connecting to scope server-side
// notifications to this wallet's guid, addresses and accounts.
type SocketSubscription struct {
	Op        string   `json:"op"`
	GUID      string   `json:"guid,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	Xpubs     []string `json:"xpubs,omitempty"`
}
