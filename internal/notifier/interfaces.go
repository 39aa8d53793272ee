package notifier

import (
	"context"
)

// Conn is the subset of a websocket connection the notifier consumes.
// *websocket.Conn from gorilla/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens the push channel. Injected so tests can substitute an
// in-memory connection.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Puller is the slice of the engine the notifier drives: the
// checksum-conditioned pull that reconciles the session with the server.
type Puller interface {
	GetWallet(ctx context.Context) error
}
