package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blockvault/walletcore/internal/adapter"
	"github.com/blockvault/walletcore/internal/config"
	"github.com/blockvault/walletcore/internal/crypto"
	"github.com/blockvault/walletcore/internal/engine"
	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/internal/notifier"
	"github.com/blockvault/walletcore/internal/payload"
	"github.com/blockvault/walletcore/internal/session"
	"github.com/blockvault/walletcore/internal/store"
	"github.com/blockvault/walletcore/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("walletd")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx := context.Background()

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open payload cache")
	}
	defer db.Close()

	if err = db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate payload cache")
	}
	snapshots := store.NewSnapshotRepository(db, log)

	serverAdapter := adapter.NewHTTPServerAdapter(adapter.HTTPClientConfig{
		BaseURL: cfg.Adapter.BaseURL,
		APICode: cfg.App.APICode,
		Timeout: cfg.Adapter.RequestTimeout,
	}, log)

	sess := session.New(nil)
	sess.SetLanguage(cfg.App.Language)
	sess.OnAny(func(name string, _ any) {
		log.Debug().Str("event", name).Msg("session event")
	})

	codec := payload.NewCodec(crypto.NewVaultCipher())
	eng := engine.New(sess, serverAdapter, codec, snapshots, cfg.Sync, log)

	liveChannel := notifier.New(sess, eng, cfg.Adapter.SocketURL, nil, nil, log)
	eng.SetChannelOpener(func() {
		if err := liveChannel.Connect(ctx); err != nil {
			log.Err(err).Msg("open push channel")
		}
	})

	// credentials come from the environment only; they never touch the
	// config file or the flag set
	guid := os.Getenv("WALLET_GUID")
	sharedKey := os.Getenv("WALLET_SHARED_KEY")
	password := os.Getenv("WALLET_PASSWORD")
	if guid == "" || password == "" {
		log.Fatal().Msg("WALLET_GUID and WALLET_PASSWORD must be set")
	}

	// a previously cached payload keeps an offline restore possible when
	// the server is unreachable
	if os.Getenv("WALLET_FORGET_CACHE") != "" {
		if err = eng.ForgetCachedPayload(ctx, guid); err != nil {
			log.Warn().Err(err).Msg("drop cached payload")
		}
	} else if err = eng.LoadCachedPayload(ctx, guid); err != nil && !errors.Is(err, store.ErrSnapshotNotFound) {
		log.Warn().Err(err).Msg("read payload cache")
	}

	loginErr := make(chan error, 1)
	eng.Login(ctx, guid, sharedKey, password, nil, engine.LoginHandlers{
		Success: func() {
			log.Info().Str("guid", sess.GUID()).Msg("wallet session initialized")
			loginErr <- nil
		},
		NeedsTwoFactorCode: func(authType int) {
			loginErr <- fmt.Errorf("account requires a second factor (auth type %d); supply WALLET_2FA_CODE", authType)
		},
		AuthorizationRequired: func(resume func()) {
			log.Info().Msg("authorization required; approve this session from another device")
			resume()
		},
		OtherError: func(err error) {
			loginErr <- err
		},
	})

	if twoFactorCode := os.Getenv("WALLET_2FA_CODE"); twoFactorCode != "" && !eng.IsInitialized() {
		<-loginErr
		code := &models.TwoFactor{Type: sess.RealAuthType(), Code: twoFactorCode}
		eng.Login(ctx, guid, sharedKey, password, code, engine.LoginHandlers{
			Success:    func() { loginErr <- nil },
			OtherError: func(err error) { loginErr <- err },
		})
	}

	if err = <-loginErr; err != nil {
		if !eng.IsInitialized() && sess.EncryptedWalletData() != "" {
			log.Warn().Err(err).Msg("login failed; restoring from cached payload")
			offlineErr := make(chan error, 1)
			eng.InitializeWallet(ctx, password, engine.LoginHandlers{
				Success:    func() { offlineErr <- nil },
				OtherError: func(err error) { offlineErr <- err },
			})
			err = <-offlineErr
		}
		if err != nil {
			log.Fatal().Err(err).Msg("login failed")
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err = eng.Logout(ctx, false); err != nil {
		if errors.Is(err, engine.ErrLogoutDisabled) {
			err = eng.Logout(ctx, true)
		}
		if err != nil {
			log.Err(err).Msg("server logout failed")
		}
	}
	_ = liveChannel.Close()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
