// Package notifier maintains the live change-notification channel: a
// websocket subscription scoped to the session's wallet that translates
// server push frames into engine pulls and session events. Reconnection
// policy belongs to the caller; this package only defines the message
// contract and keeps a single connection alive until it drops.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/session"
	"github.com/blockvault/walletcore/models"
)

// ChangeNotifier owns one push-channel connection per Connect call.
type ChangeNotifier struct {
	session *session.State
	puller  Puller
	dialer  Dialer
	url     string
	log     *logger.Logger

	// refresh is the wallet-layer history hook, fired on utx and block
	// frames. May be nil.
	refresh func(ctx context.Context)

	mu           sync.Mutex
	conn         Conn
	lastOnChange string
}

// New builds a notifier around the session and the engine's pull entry
// point. A nil dialer selects gorilla/websocket's default dialer.
func New(sess *session.State, puller Puller, url string, dialer Dialer, refresh func(ctx context.Context), log *logger.Logger) *ChangeNotifier {
	if dialer == nil {
		dialer = func(ctx context.Context, url string) (Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}
	return &ChangeNotifier{
		session: sess,
		puller:  puller,
		dialer:  dialer,
		url:     url,
		refresh: refresh,
		log:     log,
	}
}

// Connect opens the channel, announces presence and subscribes to the
// wallet guid, its active addresses and its account xpubs, then starts the
// read loop on a new goroutine.
func (n *ChangeNotifier) Connect(ctx context.Context) error {
	conn, err := n.dialer(ctx, n.url)
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()

	n.session.SendEvent(models.EventWSOpen, nil)

	if err = n.subscribe(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe push channel: %w", err)
	}

	go n.readLoop(ctx, conn)
	return nil
}

// Close tears down the current connection, if any.
func (n *ChangeNotifier) Close() error {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (n *ChangeNotifier) subscribe(conn Conn) error {
	subs := []models.SocketSubscription{
		{Op: "wallet_sub", GUID: n.session.GUID()},
	}

	if wallet := n.session.Wallet(); wallet != nil {
		if addrs := wallet.WatchedAddresses(); len(addrs) > 0 {
			subs = append(subs, models.SocketSubscription{Op: "addr_sub", Addresses: addrs})
		}
		if xpubs := wallet.ActiveXpubs(); len(xpubs) > 0 {
			subs = append(subs, models.SocketSubscription{Op: "xpub_sub", Xpubs: xpubs})
		}
	}

	for _, sub := range subs {
		if err := conn.WriteJSON(sub); err != nil {
			return err
		}
	}
	return nil
}

func (n *ChangeNotifier) readLoop(ctx context.Context, conn Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			n.log.Info().Err(err).Msg("push channel closed")
			n.session.SendEvent(models.EventWSClose, nil)
			return
		}
		n.handleFrame(ctx, frame)
	}
}

// handleFrame dispatches one frame. Malformed frames are logged and
// dropped; they are never fatal to the channel.
func (n *ChangeNotifier) handleFrame(ctx context.Context, frame []byte) {
	var msg models.SocketMessage
	if err := json.Unmarshal(frame, &msg); err != nil || msg.Op == "" {
		n.log.Warn().Int("len", len(frame)).Msg("dropping malformed push frame")
		return
	}

	switch msg.Op {
	case models.SocketOpChange:
		n.handleOnChange(ctx, msg)
	case models.SocketOpUtx:
		n.handleUtx(ctx, msg)
	case models.SocketOpBlock:
		n.handleBlock(ctx, msg)
	default:
		n.log.Debug().Str("op", msg.Op).Msg("ignoring unknown push op")
	}
}

// handleOnChange pulls the payload when the server checksum differs from
// both the local checksum and the last change already reacted to. Rapid
// repeats of the same change collapse to one pull.
func (n *ChangeNotifier) handleOnChange(ctx context.Context, msg models.SocketMessage) {
	if msg.Checksum == "" {
		return
	}

	n.mu.Lock()
	seen := msg.Checksum == n.lastOnChange
	if !seen {
		n.lastOnChange = msg.Checksum
	}
	n.mu.Unlock()

	if seen || msg.Checksum == n.session.PayloadChecksum() {
		return
	}

	if err := n.puller.GetWallet(ctx); err != nil {
		n.log.Err(err).Msg("pull after on_change failed")
	}
}

func (n *ChangeNotifier) handleUtx(ctx context.Context, msg models.SocketMessage) {
	n.session.SendEvent(models.EventTxReceived, msg.X)
	if n.refresh != nil {
		n.refresh(ctx)
	}
	n.session.SendEvent(models.EventTx, msg.X)
}

func (n *ChangeNotifier) handleBlock(ctx context.Context, msg models.SocketMessage) {
	var block models.Block
	if err := json.Unmarshal(msg.X, &block); err != nil {
		n.log.Warn().Msg("dropping malformed block frame")
		return
	}

	n.session.SetLatestBlock(&block)
	if n.refresh != nil {
		n.refresh(ctx)
	}
	n.session.SendEvent(models.EventBlock, block)
}
