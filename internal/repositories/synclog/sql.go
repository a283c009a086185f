package synclog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/timex"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Insert(ctx context.Context, e models.SyncLogEntry) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO sync_log (id, userId, dataType, count, dateStart, dateEnd, syncedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.UserID, string(e.DataType), e.Count,
		timex.ToMillis(e.DateStart), timex.ToMillis(e.DateEnd), timex.ToMillis(e.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to insert sync log %s: %w", e.ID, err)
	}
	return nil
}

// ListByUser returns the user's entries, most recent sync first.
func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]models.SyncLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT id, userId, dataType, count, dateStart, dateEnd, syncedAt
		FROM sync_log
		WHERE userId = ?
		ORDER BY syncedAt DESC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log: %w", err)
	}
	defer rows.Close()

	var result []models.SyncLogEntry
	for rows.Next() {
		var (
			e                          models.SyncLogEntry
			dataType                   string
			dateStart, dateEnd, synced int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &dataType, &e.Count, &dateStart, &dateEnd, &synced); err != nil {
			return nil, fmt.Errorf("failed to scan sync log row: %w", err)
		}
		e.DataType = models.SyncDataType(dataType)
		e.DateStart = timex.FromMillis(dateStart)
		e.DateEnd = timex.FromMillis(dateEnd)
		e.SyncedAt = timex.FromMillis(synced)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync log rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_log`); err != nil {
		return fmt.Errorf("failed to clear sync log: %w", err)
	}
	return nil
}
