// Package session holds the process-wide mutable session of the wallet
// client: credentials, the decrypted working copy, the payload checksum and
// the lifecycle flags every other component keys off. Exactly one *State
// exists per running client; it is created at startup and torn down only on
// process exit.
package session

import (
	"sync"

	"github.com/blockvault/walletcore/models"
)

// ChecksumFunc is the deterministic content hash applied to ciphertext to
// compare client and server state without transmitting the blob. The
// concrete algorithm is a pluggable collaborator choice.
type ChecksumFunc func(ciphertext string) string

// State is the single shared mutable resource of the engine. Fields are
// guarded by one mutex; ownership of each field transition still belongs to
// exactly one component (only the sync engine flips synchronized, only the
// poller touches the poll counter, and so on).
type State struct {
	mu sync.RWMutex

	wallet              *models.WalletState
	guid                string
	password            string
	pbkdf2Iterations    int
	payloadChecksum     string
	encryptedWalletData string

	realAuthType int
	syncPubKeys  bool
	language     string

	initialized    bool
	restoring      bool
	polling        bool
	synchronized   bool
	logoutDisabled bool

	pollCount int

	checksum ChecksumFunc

	logoutReset func()

	sink *eventSink
}

// New creates a session with all flags false and the given checksum
// primitive. A nil checksum selects the default SHA-256 content hash.
func New(checksum ChecksumFunc) *State {
	if checksum == nil {
		checksum = SHA256Checksum
	}
	return &State{
		pbkdf2Iterations: models.DefaultIterations,
		checksum:         checksum,
		sink:             newEventSink(),
	}
}

// GenerateChecksum hashes ciphertext with the session's checksum primitive.
// Pure function of the input: same ciphertext, same checksum.
func (s *State) GenerateChecksum(ciphertext string) string {
	return s.checksum(ciphertext)
}

// Wallet returns the decrypted working copy, nil before initialization.
func (s *State) Wallet() *models.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// SetWallet replaces the working copy wholesale. The previous copy is
// superseded, never mutated in place.
func (s *State) SetWallet(w *models.WalletState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = w
}

// SetLatestBlock records the chain tip on the held wallet, if any. Guarded
// here because block frames arrive on the notifier's read goroutine while
// other components read or replace the wallet.
func (s *State) SetLatestBlock(b *models.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		s.wallet.LatestBlock = b
	}
}

func (s *State) GUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guid
}

func (s *State) SetGUID(guid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guid = guid
}

// Password returns the in-memory login password. It is never serialized
// and must never be logged.
func (s *State) Password() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password
}

// UnsafeSetPassword stores the plaintext password for the lifetime of the
// session. The name is a reminder that no scrubbing happens on logout.
func (s *State) UnsafeSetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

func (s *State) Pbkdf2Iterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pbkdf2Iterations
}

func (s *State) SetPbkdf2Iterations(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pbkdf2Iterations = n
}

// PayloadChecksum returns the checksum of the last known good ciphertext.
func (s *State) PayloadChecksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payloadChecksum
}

// SetPayloadChecksum back-fills the checksum for a freshly decrypted blob
// that had none (brand-new wallet).
func (s *State) SetPayloadChecksum(checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloadChecksum = checksum
}

// EncryptedWalletData returns the last ciphertext pulled or pushed.
func (s *State) EncryptedWalletData() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encryptedWalletData
}

// SetEncryptedWalletData stores a new ciphertext and recomputes the payload
// checksum under the same lock. The pair is never updated independently.
func (s *State) SetEncryptedWalletData(ciphertext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryptedWalletData = ciphertext
	s.payloadChecksum = s.checksum(ciphertext)
}

func (s *State) RealAuthType() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realAuthType
}

func (s *State) SetRealAuthType(t int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realAuthType = t
}

func (s *State) SyncPubKeys() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncPubKeys
}

func (s *State) SetSyncPubKeys(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncPubKeys = v
}

func (s *State) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *State) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// IsInitialized reports whether the session reached INITIALIZED.
func (s *State) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// MarkInitialized flips initialized false→true exactly once per session
// lifetime and reports whether this call was the transition. Callers use
// the return value to run first-time-only work (opening the live channel).
func (s *State) MarkInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return false
	}
	s.initialized = true
	return true
}

func (s *State) IsRestoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoring
}

// BeginRestoring claims the single login/restore slot and reports whether
// this caller won it. The claim fails when the session is already
// initialized or another attempt holds the slot, so concurrent attempts
// collapse to the first one.
func (s *State) BeginRestoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized || s.restoring {
		return false
	}
	s.restoring = true
	return true
}

func (s *State) EndRestoring() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = false
}

// BeginPolling flips the polling flag and reports whether this caller won;
// at most one poll loop is active per session.
func (s *State) BeginPolling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return false
	}
	s.polling = true
	return true
}

func (s *State) EndPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polling = false
}

func (s *State) IsPolling() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polling
}

// IncrementPollCount bumps the monotonically increasing poll counter and
// returns the new value.
func (s *State) IncrementPollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollCount++
	return s.pollCount
}

func (s *State) PollCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollCount
}

// IsSynchronized reports whether the server confirmed the last push.
func (s *State) IsSynchronized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synchronized
}

// SetSynchronized is owned by the sync engine: cleared the moment a push is
// requested, set only after the post-push checksum verification succeeds.
func (s *State) SetSynchronized(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synchronized = v
}

// DisableLogout suppresses logout while a push is in flight.
func (s *State) DisableLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutDisabled = true
}

func (s *State) EnableLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutDisabled = false
}

func (s *State) IsLogoutDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logoutDisabled
}

// SetLogoutResetHook installs the inactivity-timer reset callback. The
// timer itself belongs to the embedding application.
func (s *State) SetLogoutResetHook(reset func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutReset = reset
}

// ResetLogoutTimeout pokes the inactivity timer, if one is installed.
func (s *State) ResetLogoutTimeout() {
	s.mu.RLock()
	reset := s.logoutReset
	s.mu.RUnlock()
	if reset != nil {
		reset()
	}
}
