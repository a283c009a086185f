package consents

import (
	"context"
	"database/sql"
	"errors"
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

const selectColumns = `id, type, enabled, granularity, dataRetention, allowBackground, createdAt, updatedAt`

func (r *SQLRepository) Upsert(ctx context.Context, c models.Consent) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO consents (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			enabled = excluded.enabled,
			granularity = excluded.granularity,
			dataRetention = excluded.dataRetention,
			allowBackground = excluded.allowBackground,
			updatedAt = excluded.updatedAt
	`),
		c.ID, string(c.Type), dbx.BoolToInt(c.Enabled), string(c.Granularity), c.DataRetention,
		dbx.BoolToInt(c.AllowBackground), timex.ToMillis(c.CreatedAt), timex.ToMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert consent %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Consent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM consents ORDER BY updatedAt DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list consents: %w", err)
	}
	defer rows.Close()

	var result []models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consent row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consent rows: %w", err)
	}
	return result, nil
}

// GetByType returns nil, nil when no consent of type t exists.
func (r *SQLRepository) GetByType(ctx context.Context, t models.ConsentType) (*models.Consent, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+selectColumns+` FROM consents WHERE type = ? ORDER BY updatedAt DESC LIMIT 1`),
		string(t))
	c, err := scanConsent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent[%s]: %w", t, err)
	}
	return &c, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM consents`); err != nil {
		return fmt.Errorf("failed to clear consents: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(s scanner) (models.Consent, error) {
	var (
		c                    models.Consent
		typ, gran            string
		enabled, background  int64
		createdAt, updatedAt int64
	)
	if err := s.Scan(&c.ID, &typ, &enabled, &gran, &c.DataRetention, &background, &createdAt, &updatedAt); err != nil {
		return models.Consent{}, err
	}
	c.Type = models.ConsentType(typ)
	c.Granularity = models.Granularity(gran)
	c.Enabled = enabled != 0
	c.AllowBackground = background != 0
	c.CreatedAt = timex.FromMillis(createdAt)
	c.UpdatedAt = timex.FromMillis(updatedAt)
	return c, nil
}
