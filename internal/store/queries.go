package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/blockvault/walletcore/models"
)

const snapshotTable = "wallet_cache"

var snapshotColumns = []string{"guid", "payload", "checksum", "language", "updated_at"}

func buildUpsertSnapshotQuery(snapshot models.PayloadSnapshot) (string, []any, error) {
	return sq.Insert(snapshotTable).
		Columns(snapshotColumns...).
		Values(snapshot.GUID, snapshot.Payload, snapshot.Checksum, snapshot.Language, snapshot.UpdatedAt).
		Suffix(`ON CONFLICT (guid) DO UPDATE SET
			payload    = excluded.payload,
			checksum   = excluded.checksum,
			language   = excluded.language,
			updated_at = excluded.updated_at`).
		ToSql()
}

func buildSelectSnapshotQuery(guid string) (string, []any, error) {
	return sq.Select(snapshotColumns...).
		From(snapshotTable).
		Where(sq.Eq{"guid": guid}).
		ToSql()
}

func buildDeleteSnapshotQuery(guid string) (string, []any, error) {
	return sq.Delete(snapshotTable).
		Where(sq.Eq{"guid": guid}).
		ToSql()
}
