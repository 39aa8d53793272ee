package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/session"
	"github.com/blockvault/walletcore/models"
)

// GetWallet is the pull half of the sync protocol: a fetch conditioned by
// the last known checksum. The server answers "Not modified" instead of
// data when nothing changed, which is a successful no-op here. New data is
// decrypted before any session field is touched, so a failure leaves the
// session on its stale-but-valid state.
func (e *engine) GetWallet(ctx context.Context) error {
	log := logger.FromContext(ctx)

	resp, err := e.adapter.GetWallet(ctx, e.session.PayloadChecksum())
	if err != nil {
		log.Err(err).Str("func", "engine.GetWallet").Msg("conditioned wallet fetch failed")
		return fmt.Errorf("pull wallet payload: %w", err)
	}

	if !resp.HasPayload() {
		return nil
	}

	env := e.codec.Parse(resp.Payload)
	wallet, err := e.codec.Decrypt(env, e.session.Password())
	if err != nil {
		log.Err(err).Str("func", "engine.GetWallet").Msg("pulled payload failed to decrypt")
		return fmt.Errorf("decrypt pulled payload: %w", err)
	}

	e.session.SetEncryptedWalletData(resp.Payload)
	e.session.SetWallet(wallet)
	e.session.SetPbkdf2Iterations(env.Iterations)

	if refresh := e.historyRefresher(); refresh != nil {
		refresh(ctx)
	}
	e.saveSnapshot(ctx)

	return nil
}

// Sync requests a coalesced push. The handlers of the most recent call win
// the coalescing window; earlier callers of the same window are represented
// by the burst's single trailing push.
func (e *engine) Sync(ctx context.Context, onSuccess func(), onError func(error)) {
	e.mu.Lock()
	e.syncCtx = ctx
	e.onSyncSuccess = onSuccess
	e.onSyncError = onError
	e.mu.Unlock()

	e.coalescer.Trigger()
}

// runPush is the Coalescer execution body: one push attempt from current
// session state through to a terminal outcome.
func (e *engine) runPush(done func()) {
	defer done()

	e.mu.Lock()
	ctx := e.syncCtx
	onSuccess := e.onSyncSuccess
	onError := e.onSyncError
	e.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	err := e.push(ctx)
	if err == nil {
		if onSuccess != nil {
			onSuccess()
		}
		return
	}

	// reconcile with whatever the server actually holds; never an
	// automatic re-push
	if !errors.Is(err, ErrWritesRefused) && !errors.Is(err, ErrNotInitialized) {
		if pullErr := e.GetWallet(ctx); pullErr != nil {
			e.log.Warn().Err(pullErr).Msg("reconciling pull after failed push also failed")
		}
	}

	if onError != nil {
		onError(err)
	}
}

// push executes one full push: serialize, encrypt, self check, update,
// checksum confirmation. Only the final confirmation flips the session to
// synchronized.
func (e *engine) push(ctx context.Context) error {
	log := logger.FromContext(ctx)

	wallet := e.session.Wallet()
	if wallet == nil {
		return ErrNotInitialized
	}

	e.mu.Lock()
	refused := e.writesRefused
	e.mu.Unlock()
	if refused {
		return ErrWritesRefused
	}
	if !wallet.EncryptionConsistent {
		// unrecoverable for the session: refuse every further write
		// rather than risk persisting corrupted state
		e.mu.Lock()
		e.writesRefused = true
		e.mu.Unlock()
		log.Error().Str("func", "engine.push").Msg("wallet reported encryption inconsistency; refusing writes")
		return ErrWritesRefused
	}

	if uuid.Validate(wallet.SharedKey) != nil || len(wallet.SharedKey) != 36 {
		return ErrInvalidSharedKey
	}

	e.session.SendEvent(models.EventBackupStart, nil)
	e.session.DisableLogout()
	defer e.session.EnableLogout()

	walletJSON, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("serialize wallet state: %w", err)
	}

	version := 2
	if wallet.UpgradedToHD {
		version = 3
	}

	ciphertext, err := e.codec.Encrypt(walletJSON, e.session.Password(), e.session.Pbkdf2Iterations(), version)
	if err != nil {
		e.session.SendEvent(models.EventBackupError, nil)
		return fmt.Errorf("encrypt wallet payload: %w", err)
	}

	// mandatory self check: decrypt the fresh ciphertext before anything
	// leaves this process
	if _, err = e.codec.Decrypt(e.codec.Parse(ciphertext), e.session.Password()); err != nil {
		e.session.SendEvent(models.EventBackupError, nil)
		log.Error().Str("func", "engine.push").Msg("self check decrypt of fresh ciphertext failed")
		return fmt.Errorf("%w: %v", ErrWalletCorruption, err)
	}

	oldChecksum := e.session.PayloadChecksum()
	e.session.SetEncryptedWalletData(ciphertext)
	newChecksum := e.session.PayloadChecksum()

	req := models.UpdateWalletRequest{
		Payload:  ciphertext,
		Length:   len(ciphertext),
		Checksum: newChecksum,
		Language: e.session.Language(),
	}
	if session.IsHexChecksum(oldChecksum) {
		req.OldChecksum = oldChecksum
	}
	if e.session.SyncPubKeys() {
		req.Active = strings.Join(wallet.WatchedAddresses(), "|")
	}

	if err = e.adapter.UpdateWallet(ctx, req); err != nil {
		e.session.SendEvent(models.EventBackupError, nil)
		return fmt.Errorf("submit wallet update: %w", err)
	}

	// the server's acceptance is only trusted once it echoes the new
	// checksum back
	if err = e.adapter.CheckChecksum(ctx, newChecksum); err != nil {
		e.session.SendEvent(models.EventBackupError, nil)
		return fmt.Errorf("confirm pushed checksum: %w", err)
	}

	// a burst that already queued a trailing push stays visibly pending
	// until that trailing push confirms
	if !e.coalescer.Dirty() {
		e.session.SetSynchronized(true)
	}
	e.session.SendEvent(models.EventBackupSuccess, nil)
	e.session.ResetLogoutTimeout()
	e.saveSnapshot(ctx)

	return nil
}

// Logout requests a server-side session end. While a push is in flight
// logout is suppressed unless forced; local state is never torn down here.
func (e *engine) Logout(ctx context.Context, force bool) error {
	if e.session.IsLogoutDisabled() && !force {
		return ErrLogoutDisabled
	}

	e.session.SendEvent(models.EventLoggingOut, nil)

	if err := e.adapter.Logout(ctx); err != nil {
		return fmt.Errorf("server logout: %w", err)
	}
	return nil
}
