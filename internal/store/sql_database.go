package store

import (
	"database/sql"

	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/migrations"
)

type DB struct {
	*sql.DB
	logger *logger.Logger
}

func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}
