package locations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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

func (r *SQLRepository) Insert(ctx context.Context, p models.LocationPoint) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO location_data (id, latitude, longitude, accuracy, timestamp, consent_id, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.Latitude, p.Longitude, p.Accuracy, timex.ToMillis(p.Timestamp), p.ConsentID, dbx.BoolToInt(p.Synced))
	if err != nil {
		return fmt.Errorf("failed to insert location point %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLRepository) ListUnsynced(ctx context.Context, limit int) ([]models.LocationPoint, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT id, latitude, longitude, accuracy, timestamp, consent_id, synced
		FROM location_data
		WHERE synced = 0
		ORDER BY timestamp DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced locations: %w", err)
	}
	defer rows.Close()

	result := make([]models.LocationPoint, 0, limit)
	for rows.Next() {
		var (
			p        models.LocationPoint
			accuracy sql.NullFloat64
			ts       int64
			synced   int64
		)
		if err := rows.Scan(&p.ID, &p.Latitude, &p.Longitude, &accuracy, &ts, &p.ConsentID, &synced); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		p.Accuracy = accuracy.Float64
		p.Timestamp = timex.FromMillis(ts)
		p.Synced = synced != 0
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location rows: %w", err)
	}
	return result, nil
}

// MarkSynced flags ids as synced in a single statement. Unknown or already
// synced ids are ignored.
func (r *SQLRepository) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `UPDATE location_data SET synced = 1 WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), args...); err != nil {
		return fmt.Errorf("failed to mark %d locations synced: %w", len(ids), err)
	}
	return nil
}

// Stats counts points strictly newer than since.
func (r *SQLRepository) Stats(ctx context.Context, since time.Time) (models.LocationStats, error) {
	var (
		count int
		last  sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT COUNT(*), MAX(timestamp) FROM location_data WHERE timestamp > ?`),
		timex.ToMillis(since),
	).Scan(&count, &last)
	if err != nil {
		return models.LocationStats{}, fmt.Errorf("failed to compute location stats: %w", err)
	}

	stats := models.LocationStats{Count: count}
	if last.Valid {
		stats.LastTimestamp = timex.FromMillis(last.Int64)
	}
	return stats, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM location_data`); err != nil {
		return fmt.Errorf("failed to clear locations: %w", err)
	}
	return nil
}
