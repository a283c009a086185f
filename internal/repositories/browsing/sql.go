package browsing

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

func (r *SQLRepository) Insert(ctx context.Context, p models.BrowsingPoint) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO browsing_data (id, domain, url, title, timeSpent, timestamp, consent_id, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.Domain, p.URL, p.Title, p.TimeSpent, timex.ToMillis(p.Timestamp), p.ConsentID, dbx.BoolToInt(p.Synced))
	if err != nil {
		return fmt.Errorf("failed to insert browsing point %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLRepository) ListUnsynced(ctx context.Context, limit int) ([]models.BrowsingPoint, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT id, domain, url, title, timeSpent, timestamp, consent_id, synced
		FROM browsing_data
		WHERE synced = 0
		ORDER BY timestamp DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced browsing: %w", err)
	}
	defer rows.Close()

	result := make([]models.BrowsingPoint, 0, limit)
	for rows.Next() {
		var (
			p      models.BrowsingPoint
			title  sql.NullString
			ts     int64
			synced int64
		)
		if err := rows.Scan(&p.ID, &p.Domain, &p.URL, &title, &p.TimeSpent, &ts, &p.ConsentID, &synced); err != nil {
			return nil, fmt.Errorf("failed to scan browsing row: %w", err)
		}
		p.Title = title.String
		p.Timestamp = timex.FromMillis(ts)
		p.Synced = synced != 0
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate browsing rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `UPDATE browsing_data SET synced = 1 WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), args...); err != nil {
		return fmt.Errorf("failed to mark %d browsing points synced: %w", len(ids), err)
	}
	return nil
}

// Stats counts visits and distinct domains strictly newer than since.
func (r *SQLRepository) Stats(ctx context.Context, since time.Time) (models.BrowsingStats, error) {
	var s models.BrowsingStats
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT COUNT(*), COUNT(DISTINCT domain) FROM browsing_data WHERE timestamp > ?`),
		timex.ToMillis(since),
	).Scan(&s.Count, &s.Domains)
	if err != nil {
		return models.BrowsingStats{}, fmt.Errorf("failed to compute browsing stats: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM browsing_data`); err != nil {
		return fmt.Errorf("failed to clear browsing: %w", err)
	}
	return nil
}
