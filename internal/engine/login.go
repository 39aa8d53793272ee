package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockvault/walletcore/internal/adapter"
	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/store"
	"github.com/blockvault/walletcore/models"
)

// Login drives one authentication attempt. See WalletEngine.Login for the
// contract; the states are INIT, FETCHING, NEEDS_2FA, FETCHING_WITH_2FA,
// HAVE_PAYLOAD, DECRYPTING, INITIALIZED, with AUTH_REQUIRED, WRONG_2FA and
// OTHER_ERROR terminal for the attempt only.
func (e *engine) Login(ctx context.Context, guid, sharedKey, password string, twoFactor *models.TwoFactor, h LoginHandlers) {
	if !e.session.BeginRestoring() {
		return
	}
	defer e.session.EndRestoring()

	log := logger.FromContext(ctx)

	if twoFactor != nil && !twoFactor.Valid() {
		h.otherError(ErrInvalidTwoFactor)
		return
	}

	e.session.UnsafeSetPassword(password)

	// a second-factor attempt for a guid whose ciphertext is already in
	// hand skips straight to decryption
	if twoFactor != nil && e.session.GUID() == guid && e.session.EncryptedWalletData() != "" {
		e.decryptAndInitialize(ctx, password, h)
		return
	}

	if twoFactor != nil {
		e.fetchWith2FA(ctx, guid, *twoFactor, h)
		return
	}

	resp, err := e.adapter.FetchWallet(ctx, guid, sharedKey)
	if err != nil {
		if errors.Is(err, adapter.ErrAuthorizationRequired) {
			// release the slot before resuming; the re-entered Login
			// takes its own claim once the session is approved
			e.session.EndRestoring()
			resume := func() {
				e.PollForSessionGUID(ctx, func() {
					e.Login(ctx, guid, sharedKey, password, twoFactor, h)
				})
			}
			if h.AuthorizationRequired != nil {
				h.AuthorizationRequired(resume)
			} else {
				resume()
			}
			return
		}
		log.Err(err).Str("func", "engine.Login").Msg("wallet fetch failed")
		h.otherError(err)
		return
	}

	if resp.GUID == "" {
		e.session.SendEvent(models.EventDidFailSetGUID, nil)
		h.otherError(adapter.ErrEmptyGUID)
		return
	}

	e.persistSessionFacts(resp, sharedKey)
	h.fetchSuccess()

	switch {
	case resp.HasPayload():
		e.session.SetEncryptedWalletData(resp.Payload)
		e.decryptAndInitialize(ctx, password, h)
	case resp.AuthType != models.AuthTypeNone:
		// expected branch: the server withholds the payload until a code
		// is supplied
		h.needsTwoFactorCode(resp.AuthType)
	default:
		h.otherError(ErrNoPayload)
	}
}

// InitializeWallet decrypts ciphertext the session already holds, without
// touching the network. Guarded by the same re-entrancy rule as Login.
func (e *engine) InitializeWallet(ctx context.Context, password string, h LoginHandlers) {
	if !e.session.BeginRestoring() {
		return
	}
	defer e.session.EndRestoring()

	if e.session.EncryptedWalletData() == "" {
		h.otherError(ErrNoPayload)
		return
	}
	e.session.UnsafeSetPassword(password)
	e.decryptAndInitialize(ctx, password, h)
}

func (e *engine) fetchWith2FA(ctx context.Context, guid string, twoFactor models.TwoFactor, h LoginHandlers) {
	log := logger.FromContext(ctx)

	body, err := e.adapter.FetchWalletWith2FA(ctx, guid, twoFactor.NormalizedCode())
	if err != nil {
		if errors.Is(err, adapter.ErrWrongTwoFactor) {
			h.wrongTwoFactorCode(err)
			return
		}
		log.Err(err).Str("func", "engine.fetchWith2FA").Msg("two factor wallet fetch failed")
		h.otherError(err)
		return
	}
	if body == "" {
		h.otherError(ErrNoPayload)
		return
	}

	e.session.SetGUID(guid)
	// "Not modified" means the ciphertext already in hand is current
	if body != models.NotModified {
		e.session.SetEncryptedWalletData(body)
	}
	if e.session.EncryptedWalletData() == "" {
		h.otherError(ErrNoPayload)
		return
	}
	h.fetchSuccess()
	e.decryptAndInitialize(ctx, e.session.Password(), h)
}

// persistSessionFacts stores the session-level facts of a wallet response.
// These hold even when the payload itself is still gated behind a second
// factor.
func (e *engine) persistSessionFacts(resp models.WalletResponse, sharedKey string) {
	e.session.SetGUID(resp.GUID)
	e.session.SetRealAuthType(resp.RealAuthType)
	e.session.SetSyncPubKeys(resp.SyncPubKeys)
	if resp.Language != "" {
		e.session.SetLanguage(resp.Language)
	}
	e.adapter.SetCredentials(resp.GUID, sharedKey)
}

// decryptAndInitialize is the DECRYPTING → INITIALIZED leg shared by every
// path that ends up with ciphertext in the session.
func (e *engine) decryptAndInitialize(ctx context.Context, password string, h LoginHandlers) {
	log := logger.FromContext(ctx)

	raw := e.session.EncryptedWalletData()
	env := e.codec.Parse(raw)

	wallet, err := e.codec.Decrypt(env, password)
	if err != nil {
		e.session.SendEvent(models.EventErrorRestoring, nil)
		e.session.SendEvent(models.EventMsg, models.Msg{Type: models.MsgError, Message: "Error decrypting wallet. Please check your password."})
		h.otherError(err)
		return
	}

	e.session.SetWallet(wallet)
	e.session.SetPbkdf2Iterations(env.Iterations)
	if e.session.PayloadChecksum() == "" {
		e.session.SetPayloadChecksum(e.session.GenerateChecksum(raw))
	}
	h.decryptSuccess()

	if wallet.UpgradedToHD {
		h.buildHDSuccess()
	} else {
		e.session.SendEvent(models.EventHDWalletsDoNotExist, nil)
	}

	if e.session.MarkInitialized() {
		if open := e.channelOpener(); open != nil {
			open()
		}
	}

	e.session.ResetLogoutTimeout()
	e.saveSnapshot(ctx)

	log.Debug().Str("func", "engine.decryptAndInitialize").Msg("wallet session initialized")
	h.success()
}

// saveSnapshot writes the current ciphertext through to the local cache.
// Best effort: a cache failure never fails the operation that produced the
// ciphertext.
func (e *engine) saveSnapshot(ctx context.Context) {
	if e.snapshots == nil {
		return
	}

	snapshot := models.PayloadSnapshot{
		GUID:      e.session.GUID(),
		Payload:   e.session.EncryptedWalletData(),
		Checksum:  e.session.PayloadChecksum(),
		Language:  e.session.Language(),
		UpdatedAt: time.Now(),
	}
	if snapshot.GUID == "" || snapshot.Payload == "" {
		return
	}

	if err := e.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		e.log.Warn().Err(err).Str("guid", snapshot.GUID).Msg("payload snapshot write failed")
	}
}

// LoadCachedPayload seeds the session with the last payload the local
// cache holds for guid. The seeded ciphertext makes an offline
// InitializeWallet possible and conditions the next fetch by the cached
// checksum. Returns store.ErrSnapshotNotFound (wrapped) when the cache has
// no row for guid.
func (e *engine) LoadCachedPayload(ctx context.Context, guid string) error {
	if e.snapshots == nil {
		return store.ErrSnapshotNotFound
	}

	snapshot, err := e.snapshots.GetSnapshot(ctx, guid)
	if err != nil {
		return fmt.Errorf("load cached payload: %w", err)
	}
	if snapshot.Payload == "" {
		return store.ErrSnapshotNotFound
	}

	e.session.SetGUID(snapshot.GUID)
	e.session.SetEncryptedWalletData(snapshot.Payload)
	if snapshot.Language != "" {
		e.session.SetLanguage(snapshot.Language)
	}

	e.log.Debug().Str("guid", guid).Msg("session seeded from payload cache")
	return nil
}

// ForgetCachedPayload drops the locally cached payload of guid. The
// session itself is untouched.
func (e *engine) ForgetCachedPayload(ctx context.Context, guid string) error {
	if e.snapshots == nil {
		return nil
	}
	if err := e.snapshots.DeleteSnapshot(ctx, guid); err != nil {
		return fmt.Errorf("forget cached payload: %w", err)
	}
	return nil
}
