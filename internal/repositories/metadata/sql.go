package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/polaris/internal/dbx"
)

// SQLRepository keeps slots in the metadata table.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Read(ctx context.Context, slot string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT value FROM metadata WHERE key = ?`), slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %q: %w", slot, err)
	}
	return value, nil
}

func (r *SQLRepository) Write(ctx context.Context, slot string, value []byte) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`), slot, value)
	if err != nil {
		return fmt.Errorf("failed to write slot %q: %w", slot, err)
	}
	return nil
}
