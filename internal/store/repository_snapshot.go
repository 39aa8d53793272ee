package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/models"
)

type snapshotRepository struct {
	*DB
	logger *logger.Logger
}

func NewSnapshotRepository(db *DB, logger *logger.Logger) SnapshotRepository {
	return &snapshotRepository{
		DB:     db,
		logger: logger,
	}
}

func (s *snapshotRepository) SaveSnapshot(ctx context.Context, snapshot models.PayloadSnapshot) error {
	log := logger.FromContext(ctx)

	query, args, err := buildUpsertSnapshotQuery(snapshot)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.SaveSnapshot").
			Str("guid", snapshot.GUID).
			Msg("failed to build upsert query for payload snapshot")
		return fmt.Errorf("failed to build snapshot upsert query: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.SaveSnapshot").
			Str("guid", snapshot.GUID).
			Msg("failed to execute upsert for payload snapshot")
		return fmt.Errorf("failed to save payload snapshot (guid=%s): %w", snapshot.GUID, err)
	}

	return nil
}

func (s *snapshotRepository) GetSnapshot(ctx context.Context, guid string) (models.PayloadSnapshot, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectSnapshotQuery(guid)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.GetSnapshot").
			Str("guid", guid).
			Msg("failed to build select query for payload snapshot")
		return models.PayloadSnapshot{}, fmt.Errorf("failed to build snapshot select query: %w", err)
	}

	var snapshot models.PayloadSnapshot
	row := s.DB.QueryRowContext(ctx, query, args...)

	scanErr := row.Scan(
		&snapshot.GUID,
		&snapshot.Payload,
		&snapshot.Checksum,
		&snapshot.Language,
		&snapshot.UpdatedAt,
	)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return models.PayloadSnapshot{}, ErrSnapshotNotFound
		}
		log.Err(scanErr).
			Str("func", "snapshotRepository.GetSnapshot").
			Str("guid", guid).
			Msg("failed to scan payload snapshot row")
		return models.PayloadSnapshot{}, fmt.Errorf("failed to scan payload snapshot row: %w", scanErr)
	}

	return snapshot, nil
}

func (s *snapshotRepository) DeleteSnapshot(ctx context.Context, guid string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteSnapshotQuery(guid)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.DeleteSnapshot").
			Str("guid", guid).
			Msg("failed to build delete query for payload snapshot")
		return fmt.Errorf("failed to build snapshot delete query: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.DeleteSnapshot").
			Str("guid", guid).
			Msg("failed to execute delete for payload snapshot")
		return fmt.Errorf("failed to delete payload snapshot (guid=%s): %w", guid, err)
	}

	return nil
}
