// Package config provides configuration loading, merging, and validation
// for the wallet client.
//
// Configuration is assembled from multiple sources in the following
// priority order (earlier sources win for any field they set):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//  4. Built-in defaults
//
// The entry point is [GetClientConfig].
package config

import (
	"time"
)

// Config is the top-level configuration of the wallet client, populated by
// merging environment variables, command-line flags, an optional JSON file
// and defaults.
//
// Struct tags: envPrefix sets the prefix for nested env lookups
// (caarlos0/env), env names the variable for scalar fields directly.
type Config struct {
	// App holds application-level settings.
	App App `envPrefix:"APP_" json:"app,omitempty"`

	// Adapter holds network settings of the HTTP transport and the
	// change-notification socket.
	Adapter Adapter `envPrefix:"ADAPTER_" json:"adapter,omitempty"`

	// Storage holds the local payload-cache settings.
	Storage Storage `envPrefix:"STORAGE_" json:"storage,omitempty"`

	// Sync holds the timing knobs of the synchronization protocol.
	Sync Sync `envPrefix:"SYNC_" json:"sync,omitempty"`

	// JSONFilePath is the optional path to a JSON configuration file,
	// merged under env and flags when set. Populated via the CONFIG
	// environment variable or the -c/-config flag.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// App holds application-level client settings.
type App struct {
	// APICode identifies this client application to the wallet server.
	// Env: APP_API_CODE
	APICode string `env:"API_CODE" json:"api_code"`

	// Language is the default locale tag used until the server reports
	// the wallet's own.
	// Env: APP_LANGUAGE
	Language string `env:"LANGUAGE" json:"language"`
}

// Adapter holds the outbound network settings.
type Adapter struct {
	// BaseURL is the wallet API root.
	// Env: ADAPTER_BASE_URL
	BaseURL string `env:"BASE_URL" json:"base_url"`

	// SocketURL is the websocket endpoint of the change-notification
	// channel.
	// Env: ADAPTER_SOCKET_URL
	SocketURL string `env:"SOCKET_URL" json:"socket_url"`

	// RequestTimeout bounds every outbound HTTP request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" json:"request_timeout"`
}

// Storage holds local persistence settings.
type Storage struct {
	// DB holds the sqlite payload-cache connection settings.
	DB DB `envPrefix:"DB_" json:"db,omitempty"`
}

// DB is the payload-cache database location.
type DB struct {
	// DSN is the sqlite connection string of the local payload cache.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN" json:"dsn"`
}

// Sync holds the timing parameters of the synchronization protocol.
type Sync struct {
	// PushSpacing is the minimum interval between a completed push and
	// the trailing coalesced re-push.
	// Env: SYNC_PUSH_SPACING
	PushSpacing time.Duration `env:"PUSH_SPACING" json:"push_spacing"`

	// PollDelay is the fixed delay between authorization-pending poll
	// rounds.
	// Env: SYNC_POLL_DELAY
	PollDelay time.Duration `env:"POLL_DELAY" json:"poll_delay"`

	// PollMaxRounds is the retry budget of the session poller.
	// Env: SYNC_POLL_MAX_ROUNDS
	PollMaxRounds int `env:"POLL_MAX_ROUNDS" json:"poll_max_rounds"`
}

// defaults returns the built-in fallback configuration, merged last.
func defaults() *Config {
	return &Config{
		App: App{
			Language: "en",
		},
		Adapter: Adapter{
			BaseURL:        "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
		},
		Storage: Storage{
			DB: DB{DSN: "walletcore.db"},
		},
		Sync: Sync{
			PushSpacing:   1500 * time.Millisecond,
			PollDelay:     2 * time.Second,
			PollMaxRounds: 600,
		},
	}
}

// validate checks the merged configuration before the client starts.
func (cfg *Config) validate() error {
	if cfg.Adapter.BaseURL == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}
	if cfg.Sync.PushSpacing <= 0 || cfg.Sync.PollDelay <= 0 || cfg.Sync.PollMaxRounds <= 0 {
		return ErrInvalidSyncConfigs
	}
	return nil
}

// GetClientConfig assembles and validates the client configuration from
// environment variables, flags, the optional JSON file and defaults.
func GetClientConfig() (*Config, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
