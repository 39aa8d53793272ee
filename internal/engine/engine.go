// Package engine implements the client-side wallet protocol: the login
// state machine, the checksum-based optimistic-concurrency sync protocol
// with its coalescing dispatcher, and the bounded authorization-pending
// poller. It owns no wallet business logic; the decrypted state is an
// opaque handle installed into the session.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/blockvault/walletcore/internal/adapter"
	"github.com/blockvault/walletcore/internal/config"
	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/payload"
	"github.com/blockvault/walletcore/internal/session"
	"github.com/blockvault/walletcore/internal/store"
)

type engine struct {
	session   *session.State
	adapter   adapter.ServerAdapter
	codec     *payload.Codec
	snapshots store.SnapshotRepository
	log       *logger.Logger

	coalescer     *Coalescer
	pollDelay     time.Duration
	pollMaxRounds int

	mu             sync.Mutex
	writesRefused  bool
	syncCtx        context.Context
	onSyncSuccess  func()
	onSyncError    func(error)
	openChannel    func()
	refreshHistory func(ctx context.Context)
}

// New wires the engine around a session, a server adapter and the payload
// codec. snapshots may be nil; the local cache is then skipped. Timing
// knobs come from the sync section of the configuration.
func New(sess *session.State, srv adapter.ServerAdapter, codec *payload.Codec, snapshots store.SnapshotRepository, cfg config.Sync, log *logger.Logger) WalletEngine {
	e := &engine{
		session:       sess,
		adapter:       srv,
		codec:         codec,
		snapshots:     snapshots,
		log:           log,
		pollDelay:     cfg.PollDelay,
		pollMaxRounds: cfg.PollMaxRounds,
	}
	e.coalescer = NewCoalescer(cfg.PushSpacing, func() {
		// every sync request, including coalesced ones, is visible as
		// pending state immediately
		sess.SetSynchronized(false)
	}, e.runPush)
	return e
}

func (e *engine) IsInitialized() bool {
	return e.session.IsInitialized()
}

func (e *engine) SetChannelOpener(open func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openChannel = open
}

func (e *engine) SetHistoryRefresher(refresh func(ctx context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshHistory = refresh
}

func (e *engine) channelOpener() func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openChannel
}

func (e *engine) historyRefresher() func(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshHistory
}
