package config

import "errors"

var (
	// ErrInvalidAdapterConfigs indicates a missing base URL or a
	// non-positive request timeout.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configs: base url and request timeout are required")

	// ErrInvalidStorageConfigs indicates a missing payload-cache DSN.
	ErrInvalidStorageConfigs = errors.New("invalid storage configs: db dsn is required")

	// ErrInvalidSyncConfigs indicates non-positive sync timing parameters.
	ErrInvalidSyncConfigs = errors.New("invalid sync configs: push spacing, poll delay and poll max rounds must be positive")
)
