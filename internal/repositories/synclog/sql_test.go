package synclog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/migrations"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, dbx.DialectSQLite))
	return db
}

func TestInsertAndListByUser(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	t0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	first := models.SyncLogEntry{
		ID: "s1", UserID: "u1", DataType: models.SyncDataLocation, Count: 100,
		DateStart: t0.Add(-time.Hour), DateEnd: t0, SyncedAt: t0,
	}
	second := models.SyncLogEntry{
		ID: "s2", UserID: "u1", DataType: models.SyncDataBrowsing, Count: 3,
		DateStart: t0, DateEnd: t0.Add(time.Minute), SyncedAt: t0.Add(time.Minute),
	}
	other := models.SyncLogEntry{ID: "s3", UserID: "u2", DataType: models.SyncDataLocation, SyncedAt: t0}

	require.NoError(t, r.Insert(ctx, first))
	require.NoError(t, r.Insert(ctx, second))
	require.NoError(t, r.Insert(ctx, other))

	got, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.SyncLogEntry{second, first}, got)

	require.NoError(t, r.DeleteAll(ctx))
	got, err = r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("conn reset")
	r := NewSQLRepository(db, dbx.DialectPostgres)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO sync_log .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).WillReturnError(boom)
	mock.ExpectQuery(`FROM sync_log\s+WHERE userId = \$1`).WithArgs("u1").WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM sync_log`).WillReturnError(boom)

	assert.ErrorIs(t, r.Insert(ctx, models.SyncLogEntry{ID: "x"}), boom)
	_, err = r.ListByUser(ctx, "u1")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.DeleteAll(ctx), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
