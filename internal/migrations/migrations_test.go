package migrations

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmbeddedFiles(t *testing.T) {
	for _, p := range []string{"sqlite/00001_init.sql", "postgres/00001_init.sql"} {
		b, err := Migrations.ReadFile(p)
		require.NoError(t, err, p)
		assert.Contains(t, string(b), "-- +goose Up")
		assert.Contains(t, string(b), "idx_sync_log_userId")
	}
}

func TestUp_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openMem(t)

	require.NoError(t, Up(ctx, db, dbx.DialectSQLite))
	require.NoError(t, Up(ctx, db, dbx.DialectSQLite))

	for _, table := range []string{"consents", "location_data", "browsing_data", "sync_log", "metadata"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
	for _, idx := range []string{"idx_location_timestamp", "idx_browsing_timestamp", "idx_sync_log_userId"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, idx).Scan(&name)
		require.NoError(t, err, idx)
	}
}

func TestUp_UnsupportedDialect(t *testing.T) {
	err := Up(context.Background(), nil, dbx.Dialect("oracle"))
	require.Error(t, err)
}

func TestUp_PostgresUsesPostgresDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Up(context.Background(), nil, dbx.DialectPostgres))
	assert.Equal(t, "postgres", gotDir)
}

func TestUp_WrapsGooseError(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	boom := errors.New("boom")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	err := Up(context.Background(), nil, dbx.DialectSQLite)
	require.ErrorIs(t, err, boom)
}
