package store

import (
	"context"

	"github.com/blockvault/walletcore/models"
)

// SnapshotRepository persists the last encrypted wallet payload seen by
// this client. It stores ciphertext only. The cache lets the client come
// up with a known payload before the first fetch completes and survive
// transient server outages.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot models.PayloadSnapshot) error
	GetSnapshot(ctx context.Context, guid string) (models.PayloadSnapshot, error)
	DeleteSnapshot(ctx context.Context, guid string) error
}
