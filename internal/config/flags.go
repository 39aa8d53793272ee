package config

import (
	"flag"
	"time"
)

// fromFlags parses all configuration flags.
//
// Flags:
//
//	-api-code client application api code
//	-base-url wallet API root URL
//	-socket-url change-notification websocket URL
//	-request-timeout outbound request timeout (e.g., "30s", "1m")
//	-d local payload cache DSN
//	-language default locale tag
//	-push-spacing coalesced push spacing (e.g., "1500ms")
//	-poll-delay session poll delay (e.g., "2s")
//	-poll-max-rounds session poll retry budget
//	-c/-config json file path with configs
func fromFlags() *Config {
	var apiCode string
	var baseURL string
	var socketURL string
	var requestTimeout time.Duration
	var dsn string
	var language string
	var pushSpacing time.Duration
	var pollDelay time.Duration
	var pollMaxRounds int
	var jsonConfigPath string

	flag.StringVar(&apiCode, "api-code", "", "Client application api code")
	flag.StringVar(&baseURL, "base-url", "", "Wallet API root URL")
	flag.StringVar(&socketURL, "socket-url", "", "Change-notification websocket URL")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&dsn, "d", "", "Local payload cache DSN")
	flag.StringVar(&language, "language", "", "Default locale tag")
	flag.DurationVar(&pushSpacing, "push-spacing", 0, "Coalesced push spacing (e.g., 1500ms)")
	flag.DurationVar(&pollDelay, "poll-delay", 0, "Session poll delay (e.g., 2s)")
	flag.IntVar(&pollMaxRounds, "poll-max-rounds", 0, "Session poll retry budget")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &Config{
		App: App{
			APICode:  apiCode,
			Language: language,
		},
		Adapter: Adapter{
			BaseURL:        baseURL,
			SocketURL:      socketURL,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB: DB{DSN: dsn},
		},
		Sync: Sync{
			PushSpacing:   pushSpacing,
			PollDelay:     pollDelay,
			PollMaxRounds: pollMaxRounds,
		},
		JSONFilePath: jsonConfigPath,
	}
}
