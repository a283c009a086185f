package locations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, migrations.Up(ctx, db, dbx.DialectSQLite))
	_, err = db.ExecContext(ctx, `INSERT INTO consents (id, type, enabled, granularity, dataRetention, allowBackground, createdAt, updatedAt)
		VALUES ('c1', 'location', 1, 'precise', 30, 0, 0, 0)`)
	require.NoError(t, err)
	return db
}

func point(i int) models.LocationPoint {
	return models.LocationPoint{
		ID:        fmt.Sprintf("p%03d", i),
		Latitude:  56.95 + float64(i)/1000,
		Longitude: 24.1,
		Accuracy:  12.5,
		Timestamp: base.Add(time.Duration(i) * time.Second),
		ConsentID: "c1",
	}
}

func TestInsertAndListUnsynced(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Insert(ctx, point(i)))
	}

	got, err := r.ListUnsynced(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, point(4), got[0])
	assert.Equal(t, "p003", got[1].ID)
	assert.Equal(t, "p002", got[2].ID)
}

func TestInsert_DuplicateID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, point(1)))
	require.Error(t, r.Insert(ctx, point(1)))
}

func TestInsert_UnknownConsent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)

	p := point(1)
	p.ConsentID = "missing"
	require.Error(t, r.Insert(context.Background(), p))
}

func TestMarkSynced_IdempotentAndFiltersList(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, r.Insert(ctx, point(i)))
	}

	require.NoError(t, r.MarkSynced(ctx, []string{"p003", "p001"}))
	require.NoError(t, r.MarkSynced(ctx, []string{"p003", "p001", "unknown"}))
	require.NoError(t, r.MarkSynced(ctx, nil))

	got, err := r.ListUnsynced(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.False(t, p.Synced)
	}
	assert.Equal(t, "p002", got[0].ID)
	assert.Equal(t, "p000", got[1].ID)
}

func TestStats_TrailingWindow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	stats, err := r.Stats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, models.LocationStats{}, stats)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Insert(ctx, point(i)))
	}

	stats, err = r.Stats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count, "window is exclusive at since")
	assert.Equal(t, base.Add(2*time.Second), stats.LastTimestamp)
}

func TestDeleteAll(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, point(1)))
	require.NoError(t, r.DeleteAll(ctx))

	got, err := r.ListUnsynced(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresDialect_MarkSynced(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE location_data SET synced = 1 WHERE id IN \(\$1, \$2\)`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	r := NewSQLRepository(db, dbx.DialectPostgres)
	require.NoError(t, r.MarkSynced(context.Background(), []string{"a", "b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	r := NewSQLRepository(db, dbx.DialectSQLite)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO location_data`).WillReturnError(boom)
	mock.ExpectQuery(`SELECT .* FROM location_data`).WillReturnError(boom)
	mock.ExpectExec(`UPDATE location_data`).WillReturnError(boom)
	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(timestamp\)`).WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM location_data`).WillReturnError(boom)

	assert.ErrorIs(t, r.Insert(ctx, point(1)), boom)
	_, err = r.ListUnsynced(ctx, 10)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.MarkSynced(ctx, []string{"x"}), boom)
	_, err = r.Stats(ctx, base)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.DeleteAll(ctx), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
