package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockvault/walletcore/internal/adapter"
	"github.com/blockvault/walletcore/internal/config"
	"github.com/blockvault/walletcore/internal/crypto"
	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/payload"
	"github.com/blockvault/walletcore/internal/session"
	"github.com/blockvault/walletcore/internal/store"
	"github.com/blockvault/walletcore/models"
)

const (
	testGUID      = "9b8c0f6a-1f4d-4b35-8d8f-111122223333"
	testSharedKey = "6a19b2a9-3b3b-4a2d-8f01-aabbccddeeff"
	testPassword  = "correct horse battery staple"
	testIters     = 16
)

// stubServerAdapter is a hand-rolled ServerAdapter test double; unset
// function fields yield zero responses.
type stubServerAdapter struct {
	mu        sync.Mutex
	token     string
	guid      string
	sharedKey string

	fetchFunc    func(ctx context.Context, guid, sharedKey string) (models.WalletResponse, error)
	fetch2FAFunc func(ctx context.Context, guid, code string) (string, error)
	getFunc      func(ctx context.Context, checksum string) (models.WalletResponse, error)
	updateFunc   func(ctx context.Context, req models.UpdateWalletRequest) error
	checkFunc    func(ctx context.Context, checksum string) error
	pollFunc     func(ctx context.Context) (models.SessionPollResponse, error)
	logoutFunc   func(ctx context.Context) error
}

func (s *stubServerAdapter) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *stubServerAdapter) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubServerAdapter) TokenExpiresAt() time.Time { return time.Time{} }

func (s *stubServerAdapter) SetCredentials(guid, sharedKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guid, s.sharedKey = guid, sharedKey
}

func (s *stubServerAdapter) FetchWallet(ctx context.Context, guid, sharedKey string) (models.WalletResponse, error) {
	if s.fetchFunc != nil {
		return s.fetchFunc(ctx, guid, sharedKey)
	}
	return models.WalletResponse{}, nil
}

func (s *stubServerAdapter) FetchWalletWith2FA(ctx context.Context, guid, code string) (string, error) {
	if s.fetch2FAFunc != nil {
		return s.fetch2FAFunc(ctx, guid, code)
	}
	return "", nil
}

func (s *stubServerAdapter) GetWallet(ctx context.Context, checksum string) (models.WalletResponse, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, checksum)
	}
	return models.WalletResponse{GUID: testGUID, Payload: models.NotModified}, nil
}

func (s *stubServerAdapter) UpdateWallet(ctx context.Context, req models.UpdateWalletRequest) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, req)
	}
	return nil
}

func (s *stubServerAdapter) CheckChecksum(ctx context.Context, checksum string) error {
	if s.checkFunc != nil {
		return s.checkFunc(ctx, checksum)
	}
	return nil
}

func (s *stubServerAdapter) PollSessionGUID(ctx context.Context) (models.SessionPollResponse, error) {
	if s.pollFunc != nil {
		return s.pollFunc(ctx)
	}
	return models.SessionPollResponse{}, nil
}

func (s *stubServerAdapter) Logout(ctx context.Context) error {
	if s.logoutFunc != nil {
		return s.logoutFunc(ctx)
	}
	return nil
}

func testSyncConfig() config.Sync {
	return config.Sync{
		PushSpacing:   10 * time.Millisecond,
		PollDelay:     time.Millisecond,
		PollMaxRounds: 600,
	}
}

func newTestEngine(t *testing.T, srv *stubServerAdapter) (*engine, *session.State, *payload.Codec) {
	t.Helper()
	sess := session.New(nil)
	codec := payload.NewCodec(crypto.NewVaultCipher())
	eng := New(sess, srv, codec, nil, testSyncConfig(), logger.Nop())
	return eng.(*engine), sess, codec
}

// encryptedTestWallet serializes and encrypts a wallet the way a push does,
// producing the envelope string a server would store.
func encryptedTestWallet(t *testing.T, codec *payload.Codec, wallet models.WalletState) string {
	t.Helper()
	walletJSON, err := json.Marshal(wallet)
	require.NoError(t, err)
	ciphertext, err := codec.Encrypt(walletJSON, testPassword, testIters, 3)
	require.NoError(t, err)
	return ciphertext
}

func hdTestWallet() models.WalletState {
	return models.WalletState{
		GUID:                 testGUID,
		SharedKey:            testSharedKey,
		ActiveAddresses:      []string{"1addrA", "1addrB"},
		UpgradedToHD:         true,
		EncryptionConsistent: true,
		HD: &models.HDWallet{Accounts: []models.HDAccount{{
			ActiveXpub:                "xpub6DummyAccountKey",
			LabeledReceivingAddresses: []string{"1labeled"},
		}}},
	}
}

func TestLogin_NoTwoFactorReachesInitialized(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())
	srv.fetchFunc = func(_ context.Context, guid, sharedKey string) (models.WalletResponse, error) {
		assert.Equal(t, testGUID, guid)
		assert.Empty(t, sharedKey)
		return models.WalletResponse{
			GUID:         testGUID,
			Payload:      ciphertext,
			AuthType:     models.AuthTypeNone,
			RealAuthType: models.AuthTypeNone,
			SyncPubKeys:  true,
			Language:     "en",
		}, nil
	}

	var succeeded, fetched, decrypted, builtHD bool
	twoFactorAsked := false

	eng.Login(context.Background(), testGUID, "", testPassword, nil, LoginHandlers{
		Success:            func() { succeeded = true },
		NeedsTwoFactorCode: func(int) { twoFactorAsked = true },
		OtherError:         func(err error) { t.Fatalf("unexpected error: %v", err) },
		FetchSuccess:       func() { fetched = true },
		DecryptSuccess:     func() { decrypted = true },
		BuildHDSuccess:     func() { builtHD = true },
	})

	assert.True(t, succeeded)
	assert.True(t, fetched)
	assert.True(t, decrypted)
	assert.True(t, builtHD)
	assert.False(t, twoFactorAsked)
	assert.True(t, eng.IsInitialized())
	assert.Equal(t, testGUID, sess.GUID())
	assert.True(t, sess.SyncPubKeys())
	assert.Equal(t, "en", sess.Language())
	require.NotNil(t, sess.Wallet())
	assert.Equal(t, testIters, sess.Pbkdf2Iterations())
	assert.NotEmpty(t, sess.PayloadChecksum())
}

func TestLogin_TwoFactorChallengeThenCode(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())
	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		return models.WalletResponse{
			GUID:         testGUID,
			AuthType:     models.AuthTypeAuthenticator,
			RealAuthType: models.AuthTypeAuthenticator,
		}, nil
	}

	var submittedCode string
	srv.fetch2FAFunc = func(_ context.Context, guid, code string) (string, error) {
		assert.Equal(t, testGUID, guid)
		submittedCode = code
		return ciphertext, nil
	}

	var challenges []int
	handlers := LoginHandlers{
		NeedsTwoFactorCode: func(authType int) { challenges = append(challenges, authType) },
		OtherError:         func(err error) { t.Fatalf("unexpected error: %v", err) },
	}

	eng.Login(context.Background(), testGUID, "", testPassword, nil, handlers)
	require.Equal(t, []int{models.AuthTypeAuthenticator}, challenges)
	assert.False(t, eng.IsInitialized())
	assert.Equal(t, models.AuthTypeAuthenticator, sess.RealAuthType())

	var succeeded bool
	handlers.Success = func() { succeeded = true }
	code := &models.TwoFactor{Type: models.AuthTypeAuthenticator, Code: "123abc"}
	eng.Login(context.Background(), testGUID, "", testPassword, code, handlers)

	assert.True(t, succeeded)
	assert.True(t, eng.IsInitialized())
	assert.Equal(t, "123ABC", submittedCode)
	require.Len(t, challenges, 1)
}

func TestLogin_WrongTwoFactorCode(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, _, _ := newTestEngine(t, srv)

	srv.fetch2FAFunc = func(context.Context, string, string) (string, error) {
		return "", adapter.ErrWrongTwoFactor
	}

	var rejected error
	code := &models.TwoFactor{Type: models.AuthTypeSMS, Code: "XYZ123"}
	eng.Login(context.Background(), testGUID, "", testPassword, code, LoginHandlers{
		WrongTwoFactorCode: func(err error) { rejected = err },
		OtherError:         func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	assert.ErrorIs(t, rejected, adapter.ErrWrongTwoFactor)
	assert.False(t, eng.IsInitialized())
}

func TestLogin_TwoFactorSkipsToDecryptWithCiphertextInHand(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	sess.SetGUID(testGUID)
	sess.SetEncryptedWalletData(encryptedTestWallet(t, codec, hdTestWallet()))

	srv.fetch2FAFunc = func(context.Context, string, string) (string, error) {
		t.Fatal("no network call expected when ciphertext is already in hand")
		return "", nil
	}

	var succeeded bool
	code := &models.TwoFactor{Type: models.AuthTypeEmail, Code: "abc123"}
	eng.Login(context.Background(), testGUID, "", testPassword, code, LoginHandlers{
		Success:    func() { succeeded = true },
		OtherError: func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	assert.True(t, succeeded)
	assert.True(t, eng.IsInitialized())
}

func TestLogin_InvalidTwoFactorRejectedBeforeNetwork(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, _, _ := newTestEngine(t, srv)

	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		t.Fatal("no network call expected for an invalid credential")
		return models.WalletResponse{}, nil
	}

	var got error
	eng.Login(context.Background(), testGUID, "", testPassword, &models.TwoFactor{Type: 1, Code: ""}, LoginHandlers{
		OtherError: func(err error) { got = err },
	})

	assert.ErrorIs(t, got, ErrInvalidTwoFactor)
}

func TestLogin_MissingGUIDIsHardError(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, _ := newTestEngine(t, srv)

	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		return models.WalletResponse{Payload: "something"}, nil
	}

	var failEvents atomic.Int32
	sess.On(models.EventDidFailSetGUID, func(string, any) { failEvents.Add(1) })

	var got error
	eng.Login(context.Background(), testGUID, "", testPassword, nil, LoginHandlers{
		OtherError: func(err error) { got = err },
	})

	assert.ErrorIs(t, got, adapter.ErrEmptyGUID)
	assert.Equal(t, int32(1), failEvents.Load())
	assert.False(t, eng.IsInitialized())
}

func TestLogin_AuthorizationRequiredPollsThenRetries(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, _, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())

	var fetches atomic.Int32
	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		if fetches.Add(1) == 1 {
			return models.WalletResponse{}, adapter.ErrAuthorizationRequired
		}
		return models.WalletResponse{GUID: testGUID, Payload: ciphertext}, nil
	}

	var polls atomic.Int32
	srv.pollFunc = func(context.Context) (models.SessionPollResponse, error) {
		if polls.Add(1) < 3 {
			return models.SessionPollResponse{}, nil
		}
		return models.SessionPollResponse{GUID: testGUID}, nil
	}

	var authRequiredSeen bool
	var succeeded bool
	eng.Login(context.Background(), testGUID, "", testPassword, nil, LoginHandlers{
		Success: func() { succeeded = true },
		AuthorizationRequired: func(resume func()) {
			authRequiredSeen = true
			resume()
		},
		OtherError: func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	assert.True(t, authRequiredSeen)
	assert.True(t, succeeded)
	assert.True(t, eng.IsInitialized())
	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, int32(3), polls.Load())
}

func TestLogin_SilentNoOpWhenAlreadyInitialized(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	sess.SetEncryptedWalletData(encryptedTestWallet(t, codec, hdTestWallet()))
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{
		OtherError: func(err error) { t.Fatalf("unexpected error: %v", err) },
	})
	require.True(t, eng.IsInitialized())

	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		t.Fatal("no fetch expected once initialized")
		return models.WalletResponse{}, nil
	}

	var anyHandler bool
	eng.Login(context.Background(), testGUID, "", testPassword, nil, LoginHandlers{
		Success:    func() { anyHandler = true },
		OtherError: func(error) { anyHandler = true },
	})
	assert.False(t, anyHandler)
}

func TestLogin_ChannelOpenedExactlyOnce(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	var opens atomic.Int32
	eng.SetChannelOpener(func() { opens.Add(1) })

	sess.SetEncryptedWalletData(encryptedTestWallet(t, codec, hdTestWallet()))
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{})
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{})

	assert.Equal(t, int32(1), opens.Load())
}

func TestLogin_WrongPasswordSurfacesDecryptError(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, _, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())
	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		return models.WalletResponse{GUID: testGUID, Payload: ciphertext}, nil
	}

	var got error
	eng.Login(context.Background(), testGUID, "", "wrong password", nil, LoginHandlers{
		OtherError: func(err error) { got = err },
	})

	assert.ErrorIs(t, got, payload.ErrDecryption)
	assert.False(t, eng.IsInitialized())
}

func TestLogin_HDWalletsDoNotExistEvent(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	legacy := hdTestWallet()
	legacy.UpgradedToHD = false
	legacy.HD = nil

	var hdMissing atomic.Int32
	sess.On(models.EventHDWalletsDoNotExist, func(string, any) { hdMissing.Add(1) })

	sess.SetEncryptedWalletData(encryptedTestWallet(t, codec, legacy))
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{
		BuildHDSuccess: func() { t.Fatal("no HD build expected for a legacy wallet") },
		OtherError:     func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	assert.Equal(t, int32(1), hdMissing.Load())
	assert.True(t, eng.IsInitialized())
}

func initializeTestWallet(t *testing.T, eng *engine, sess *session.State, codec *payload.Codec, wallet models.WalletState) {
	t.Helper()
	sess.SetGUID(testGUID)
	sess.SetEncryptedWalletData(encryptedTestWallet(t, codec, wallet))
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{
		OtherError: func(err error) { t.Fatalf("initialize failed: %v", err) },
	})
	require.True(t, eng.IsInitialized())
}

func TestGetWallet_NotModifiedIsNoOp(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	dataBefore := sess.EncryptedWalletData()
	checksumBefore := sess.PayloadChecksum()
	walletBefore := sess.Wallet()

	srv.getFunc = func(_ context.Context, checksum string) (models.WalletResponse, error) {
		assert.Equal(t, checksumBefore, checksum)
		return models.WalletResponse{GUID: testGUID, Payload: models.NotModified}, nil
	}

	require.NoError(t, eng.GetWallet(context.Background()))

	assert.Equal(t, dataBefore, sess.EncryptedWalletData())
	assert.Equal(t, checksumBefore, sess.PayloadChecksum())
	assert.Same(t, walletBefore, sess.Wallet())
}

func TestGetWallet_InstallsNewPayload(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	updated := hdTestWallet()
	updated.ActiveAddresses = append(updated.ActiveAddresses, "1newAddr")
	newCiphertext := encryptedTestWallet(t, codec, updated)

	srv.getFunc = func(context.Context, string) (models.WalletResponse, error) {
		return models.WalletResponse{GUID: testGUID, Payload: newCiphertext}, nil
	}

	var refreshed atomic.Int32
	eng.SetHistoryRefresher(func(context.Context) { refreshed.Add(1) })

	require.NoError(t, eng.GetWallet(context.Background()))

	assert.Equal(t, newCiphertext, sess.EncryptedWalletData())
	assert.Contains(t, sess.Wallet().ActiveAddresses, "1newAddr")
	assert.Equal(t, int32(1), refreshed.Load())
}

func TestGetWallet_ErrorLeavesStateUntouched(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	dataBefore := sess.EncryptedWalletData()
	walletBefore := sess.Wallet()

	srv.getFunc = func(context.Context, string) (models.WalletResponse, error) {
		return models.WalletResponse{}, errors.New("boom")
	}

	require.Error(t, eng.GetWallet(context.Background()))
	assert.Equal(t, dataBefore, sess.EncryptedWalletData())
	assert.Same(t, walletBefore, sess.Wallet())
}

func TestSync_BurstCoalescesToTwoUpdates(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	var updates atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv.updateFunc = func(_ context.Context, req models.UpdateWalletRequest) error {
		assert.NotEmpty(t, req.Payload)
		assert.Equal(t, len(req.Payload), req.Length)
		if updates.Add(1) == 1 {
			once.Do(func() { close(entered) })
			<-release
		}
		return nil
	}

	eng.Sync(context.Background(), nil, func(err error) { t.Errorf("unexpected sync error: %v", err) })
	<-entered

	for i := 0; i < 5; i++ {
		eng.Sync(context.Background(), nil, func(err error) { t.Errorf("unexpected sync error: %v", err) })
	}
	assert.False(t, sess.IsSynchronized())
	close(release)

	require.Eventually(t, func() bool { return sess.IsSynchronized() }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(2), updates.Load())
}

func TestSync_OldChecksumAndActiveAddresses(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())
	sess.SetSyncPubKeys(true)

	oldChecksum := sess.PayloadChecksum()

	var captured models.UpdateWalletRequest
	srv.updateFunc = func(_ context.Context, req models.UpdateWalletRequest) error {
		captured = req
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	eng.Sync(context.Background(), func() { wg.Done() }, func(err error) {
		t.Errorf("unexpected sync error: %v", err)
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, oldChecksum, captured.OldChecksum)
	assert.Equal(t, sess.PayloadChecksum(), captured.Checksum)
	assert.Contains(t, captured.Active, "1addrA")
	assert.Contains(t, captured.Active, "1labeled")
	assert.Contains(t, captured.Active, "|")
}

func TestSync_ChecksumMismatchTriggersReconcilingPull(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	srv.checkFunc = func(context.Context, string) error {
		return adapter.ErrChecksumMismatch
	}

	var pulls atomic.Int32
	srv.getFunc = func(context.Context, string) (models.WalletResponse, error) {
		pulls.Add(1)
		return models.WalletResponse{GUID: testGUID, Payload: models.NotModified}, nil
	}

	errCh := make(chan error, 1)
	eng.Sync(context.Background(), func() { t.Error("unexpected sync success") }, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, adapter.ErrChecksumMismatch)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync error")
	}

	assert.False(t, sess.IsSynchronized())
	assert.Equal(t, int32(1), pulls.Load())
}

func TestSync_EncryptionInconsistencyRefusesWrites(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	inconsistent := hdTestWallet()
	initializeTestWallet(t, eng, sess, codec, inconsistent)
	wallet := sess.Wallet()
	wallet.EncryptionConsistent = false

	srv.updateFunc = func(context.Context, models.UpdateWalletRequest) error {
		t.Error("no update expected after a consistency violation")
		return nil
	}

	for i := 0; i < 2; i++ {
		errCh := make(chan error, 1)
		eng.Sync(context.Background(), func() { t.Error("unexpected sync success") }, func(err error) { errCh <- err })
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrWritesRefused)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sync error")
		}
		// wait out the coalescing window before the next attempt
		time.Sleep(30 * time.Millisecond)
	}
}

func TestSync_InvalidSharedKeyRefused(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	bad := hdTestWallet()
	bad.SharedKey = "not-a-uuid"
	initializeTestWallet(t, eng, sess, codec, bad)

	srv.updateFunc = func(context.Context, models.UpdateWalletRequest) error {
		t.Error("no update expected with a malformed shared key")
		return nil
	}

	errCh := make(chan error, 1)
	eng.Sync(context.Background(), nil, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrInvalidSharedKey)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync error")
	}
}

func TestSync_LogoutSuppressedDuringPush(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)
	initializeTestWallet(t, eng, sess, codec, hdTestWallet())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv.updateFunc = func(context.Context, models.UpdateWalletRequest) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	done := make(chan struct{})
	eng.Sync(context.Background(), func() { close(done) }, func(err error) {
		t.Errorf("unexpected sync error: %v", err)
		close(done)
	})

	<-entered
	assert.ErrorIs(t, eng.Logout(context.Background(), false), ErrLogoutDisabled)
	require.NoError(t, eng.Logout(context.Background(), true))

	close(release)
	<-done

	assert.False(t, sess.IsLogoutDisabled())
	require.NoError(t, eng.Logout(context.Background(), false))
}

func TestLogin_ConcurrentAttemptsCollapseToOne(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())

	inFetch := make(chan struct{})
	release := make(chan struct{})
	var fetches, successes atomic.Int32
	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		fetches.Add(1)
		close(inFetch)
		<-release
		return models.WalletResponse{GUID: testGUID, Payload: ciphertext}, nil
	}
	h := LoginHandlers{Success: func() { successes.Add(1) }}

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Login(context.Background(), testGUID, "", testPassword, nil, h)
	}()

	<-inFetch
	// the restore slot is held mid-fetch; this attempt must be a silent
	// no-op
	eng.Login(context.Background(), testGUID, "", testPassword, nil, h)
	close(release)
	<-done

	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, int32(1), successes.Load())
	assert.True(t, sess.IsInitialized())
	assert.False(t, sess.IsRestoring())
}

func TestLogin_TwoFactorNotModifiedDecryptsPayloadInHand(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, codec := newTestEngine(t, srv)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())
	sess.SetEncryptedWalletData(ciphertext)

	var calls atomic.Int32
	srv.fetch2FAFunc = func(context.Context, string, string) (string, error) {
		calls.Add(1)
		return models.NotModified, nil
	}

	var succeeded bool
	code := &models.TwoFactor{Type: models.AuthTypeAuthenticator, Code: "123456"}
	eng.Login(context.Background(), testGUID, "", testPassword, code, LoginHandlers{
		Success:    func() { succeeded = true },
		OtherError: func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, succeeded)
	assert.Equal(t, ciphertext, sess.EncryptedWalletData())
	assert.True(t, sess.IsInitialized())
}

func TestLogin_TwoFactorNotModifiedWithoutPayloadErrors(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, _ := newTestEngine(t, srv)

	srv.fetch2FAFunc = func(context.Context, string, string) (string, error) {
		return models.NotModified, nil
	}

	var got error
	code := &models.TwoFactor{Type: models.AuthTypeSMS, Code: "9999"}
	eng.Login(context.Background(), testGUID, "", testPassword, code, LoginHandlers{
		Success:    func() { t.Fatal("must not initialize without ciphertext") },
		OtherError: func(err error) { got = err },
	})

	assert.ErrorIs(t, got, ErrNoPayload)
	assert.False(t, sess.IsInitialized())
}

// stubSnapshotRepo is an in-memory SnapshotRepository test double.
type stubSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]models.PayloadSnapshot
}

func newStubSnapshotRepo() *stubSnapshotRepo {
	return &stubSnapshotRepo{snapshots: make(map[string]models.PayloadSnapshot)}
}

func (s *stubSnapshotRepo) SaveSnapshot(_ context.Context, snapshot models.PayloadSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.GUID] = snapshot
	return nil
}

func (s *stubSnapshotRepo) GetSnapshot(_ context.Context, guid string) (models.PayloadSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[guid]
	if !ok {
		return models.PayloadSnapshot{}, store.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *stubSnapshotRepo) DeleteSnapshot(_ context.Context, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, guid)
	return nil
}

func newTestEngineWithCache(t *testing.T, srv *stubServerAdapter, repo *stubSnapshotRepo) (*engine, *session.State, *payload.Codec) {
	t.Helper()
	sess := session.New(nil)
	codec := payload.NewCodec(crypto.NewVaultCipher())
	eng := New(sess, srv, codec, repo, testSyncConfig(), logger.Nop())
	return eng.(*engine), sess, codec
}

func TestLoadCachedPayload_OfflineRestore(t *testing.T) {
	srv := &stubServerAdapter{}
	repo := newStubSnapshotRepo()
	eng, sess, codec := newTestEngineWithCache(t, srv, repo)

	ciphertext := encryptedTestWallet(t, codec, hdTestWallet())
	require.NoError(t, repo.SaveSnapshot(context.Background(), models.PayloadSnapshot{
		GUID:     testGUID,
		Payload:  ciphertext,
		Checksum: sess.GenerateChecksum(ciphertext),
		Language: "fr",
	}))

	srv.fetchFunc = func(context.Context, string, string) (models.WalletResponse, error) {
		t.Fatal("offline restore must not touch the network")
		return models.WalletResponse{}, nil
	}

	require.NoError(t, eng.LoadCachedPayload(context.Background(), testGUID))
	assert.Equal(t, testGUID, sess.GUID())
	assert.Equal(t, ciphertext, sess.EncryptedWalletData())
	assert.Equal(t, "fr", sess.Language())

	var succeeded bool
	eng.InitializeWallet(context.Background(), testPassword, LoginHandlers{
		Success:    func() { succeeded = true },
		OtherError: func(err error) { t.Fatalf("offline restore failed: %v", err) },
	})

	assert.True(t, succeeded)
	assert.True(t, eng.IsInitialized())
}

func TestLoadCachedPayload_MissReturnsNotFound(t *testing.T) {
	srv := &stubServerAdapter{}
	eng, sess, _ := newTestEngineWithCache(t, srv, newStubSnapshotRepo())

	err := eng.LoadCachedPayload(context.Background(), testGUID)

	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
	assert.Empty(t, sess.EncryptedWalletData())
}

func TestForgetCachedPayload(t *testing.T) {
	srv := &stubServerAdapter{}
	repo := newStubSnapshotRepo()
	eng, _, _ := newTestEngineWithCache(t, srv, repo)

	require.NoError(t, repo.SaveSnapshot(context.Background(), models.PayloadSnapshot{
		GUID:    testGUID,
		Payload: "cached-blob",
	}))

	require.NoError(t, eng.ForgetCachedPayload(context.Background(), testGUID))

	_, err := repo.GetSnapshot(context.Background(), testGUID)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}
