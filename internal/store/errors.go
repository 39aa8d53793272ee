package store

import "errors"

var (
	// ErrSnapshotNotFound indicates the cache has no payload for the
	// requested wallet identifier.
	ErrSnapshotNotFound = errors.New("payload snapshot not found")
)
