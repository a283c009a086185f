package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *clockx.Fake) {
	t.Helper()
	clock := clockx.NewFake(now)
	s, err := Open(context.Background(), dbx.DialectSQLite,
		"file:"+t.Name()+"?mode=memory&cache=shared", WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	return s, clock
}

func seedConsent(t *testing.T, s *Store, id string, typ models.ConsentType) models.Consent {
	t.Helper()
	c := models.Consent{
		ID: id, Type: typ, Granularity: models.GranularityApproximate, DataRetention: 30,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.SaveConsent(context.Background(), c))
	return c
}

func locationPoint(i int, consentID string) models.LocationPoint {
	return models.LocationPoint{
		ID:        fmt.Sprintf("loc-%03d", i),
		Latitude:  1,
		Longitude: 2,
		Accuracy:  5,
		Timestamp: now.Add(-time.Hour).Add(time.Duration(i) * time.Second),
		ConsentID: consentID,
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.Initialize(context.Background()))
}

func TestConsents(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seedConsent(t, s, "c-loc", models.ConsentLocation)
	b := seedConsent(t, s, "c-br", models.ConsentBrowsing)

	b.Enabled = true
	b.UpdatedAt = now.Add(time.Second)
	require.NoError(t, s.SaveConsent(ctx, b))

	all, err := s.GetConsents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c-br", all[0].ID)
	assert.True(t, all[0].Enabled)

	got, err := s.GetConsentByType(ctx, models.ConsentLocation)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-loc", got.ID)

	got, err = s.GetConsentByType(ctx, models.ConsentPurchases)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnsyncedBatchAndMarkSynced(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedConsent(t, s, "c-loc", models.ConsentLocation)

	for i := 0; i < 150; i++ {
		require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(i, "c-loc")))
	}

	batch, err := s.GetUnsyncedLocationPoints(ctx)
	require.NoError(t, err)
	require.Len(t, batch, UnsyncedBatchLimit)
	assert.Equal(t, "loc-149", batch[0].ID)
	assert.Equal(t, "loc-050", batch[99].ID)
	for i := 1; i < len(batch); i++ {
		assert.True(t, batch[i-1].Timestamp.After(batch[i].Timestamp), "newest first")
	}

	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	require.NoError(t, s.MarkLocationSynced(ctx, ids))
	require.NoError(t, s.MarkLocationSynced(ctx, ids), "re-marking is a no-op")
	require.NoError(t, s.MarkLocationSynced(ctx, nil))

	rest, err := s.GetUnsyncedLocationPoints(ctx)
	require.NoError(t, err)
	require.Len(t, rest, 50)
	assert.Equal(t, "loc-049", rest[0].ID)
	for _, p := range rest {
		assert.False(t, p.Synced)
	}
}

func TestBrowsingPointsAndStats(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	seedConsent(t, s, "c-br", models.ConsentBrowsing)

	visits := []models.BrowsingPoint{
		{ID: "v1", Domain: "a.example", URL: "https://a.example/1", TimeSpent: 4, Timestamp: now.Add(-40 * 24 * time.Hour)},
		{ID: "v2", Domain: "a.example", URL: "https://a.example/2", TimeSpent: 5, Timestamp: now.Add(-2 * time.Hour)},
		{ID: "v3", Domain: "b.example", URL: "https://b.example/", TimeSpent: 6, Timestamp: now.Add(-time.Hour)},
	}
	for _, v := range visits {
		v.ConsentID = "c-br"
		require.NoError(t, s.SaveBrowsingPoint(ctx, v))
	}

	st, err := s.GetBrowsingStats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, models.BrowsingStats{Count: 2, Domains: 2}, st)

	clock.Advance(29 * 24 * time.Hour)
	st, err = s.GetBrowsingStats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, models.BrowsingStats{Count: 2, Domains: 2}, st)

	clock.Advance(24 * time.Hour)
	st, err = s.GetBrowsingStats(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, st.Count)

	unsynced, err := s.GetUnsyncedBrowsingPoints(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 3)
	require.NoError(t, s.MarkBrowsingSynced(ctx, []string{"v1", "v2", "v3"}))
	unsynced, err = s.GetUnsyncedBrowsingPoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestLocationStats(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedConsent(t, s, "c-loc", models.ConsentLocation)

	st, err := s.GetLocationStats(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, st.Count)
	assert.True(t, st.LastTimestamp.IsZero())

	require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(1, "c-loc")))
	require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(2, "c-loc")))

	st, err = s.GetLocationStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, locationPoint(2, "").Timestamp, st.LastTimestamp)
}

func TestSavePoint_DuplicateIsStorageFailure(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedConsent(t, s, "c-loc", models.ConsentLocation)

	require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(1, "c-loc")))
	err := s.SaveLocationPoint(ctx, locationPoint(1, "c-loc"))
	require.ErrorIs(t, err, common.ErrStorageFailure)
}

func TestSavePoint_UnknownConsentIsStorageFailure(t *testing.T) {
	s, _ := newStore(t)
	err := s.SaveLocationPoint(context.Background(), locationPoint(1, "nope"))
	require.ErrorIs(t, err, common.ErrStorageFailure)
}

func TestClearAll_KeepsSchemaAndSlots(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seedConsent(t, s, "c-loc", models.ConsentLocation)
	seedConsent(t, s, "c-br", models.ConsentBrowsing)
	require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(1, "c-loc")))
	require.NoError(t, s.SaveBrowsingPoint(ctx, models.BrowsingPoint{ID: "v1", Domain: "d", URL: "u", Timestamp: now, ConsentID: "c-br"}))
	require.NoError(t, s.RecordSync(ctx, models.SyncLogEntry{ID: "s1", UserID: "u1", DataType: models.SyncDataLocation, SyncedAt: now}))
	require.NoError(t, s.SaveEncryptionKey(ctx, []byte{1, 2, 3}))

	require.NoError(t, s.ClearAll(ctx))

	cs, err := s.GetConsents(ctx)
	require.NoError(t, err)
	assert.Empty(t, cs)
	locs, err := s.GetUnsyncedLocationPoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)
	brs, err := s.GetUnsyncedBrowsingPoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, brs)
	logs, err := s.GetSyncLog(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	key, err := s.GetEncryptionKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, key)

	// writes succeed without re-initializing
	seedConsent(t, s, "c-loc2", models.ConsentLocation)
	require.NoError(t, s.SaveLocationPoint(ctx, locationPoint(7, "c-loc2")))
}

func TestKeyValueSlots(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	user := models.User{ID: "u1", PublicKey: "abcd", CreatedAt: now}
	require.NoError(t, s.SaveUser(ctx, user))
	user.LastSync = now.Add(time.Minute)
	require.NoError(t, s.SaveUser(ctx, user))

	u, err = s.GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, user, *u)

	k, err := s.GetEncryptionKey(ctx)
	require.NoError(t, err)
	assert.Nil(t, k)
	require.NoError(t, s.SaveEncryptionKey(ctx, []byte{0xde, 0xad}))
	k, err = s.GetEncryptionKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, k)

	id, err := s.GetIdentityKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
	require.NoError(t, s.SaveIdentityKey(ctx, "sealed"))
	id, err = s.GetIdentityKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sealed", id)
}

func TestSyncLog(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	e1 := models.SyncLogEntry{ID: "s1", UserID: "u1", DataType: models.SyncDataLocation, Count: 2, DateStart: now, DateEnd: now, SyncedAt: now}
	e2 := models.SyncLogEntry{ID: "s2", UserID: "u1", DataType: models.SyncDataBrowsing, Count: 1, DateStart: now, DateEnd: now, SyncedAt: now.Add(time.Second)}
	require.NoError(t, s.RecordSync(ctx, e1))
	require.NoError(t, s.RecordSync(ctx, e2))

	got, err := s.GetSyncLog(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.SyncLogEntry{e2, e1}, got)
}

func TestMarkSynced_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := New(db, dbx.DialectSQLite)

	ids := make([]string, markChunkSize+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE location_data SET synced = 1`).WillReturnResult(sqlmock.NewResult(0, markChunkSize))
	mock.ExpectExec(`UPDATE location_data SET synced = 1`).WillReturnError(boom)
	mock.ExpectRollback()

	err = s.MarkLocationSynced(context.Background(), ids)
	require.ErrorIs(t, err, common.ErrStorageFailure)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearAll_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := New(db, dbx.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM browsing_data`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM location_data`).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	require.ErrorIs(t, s.ClearAll(context.Background()), common.ErrStorageFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_Failures(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()

	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("no driver")
	}
	_, err := Open(context.Background(), dbx.DialectSQLite, "x.db")
	require.ErrorIs(t, err, common.ErrStorageFailure)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}
	_, err = Open(context.Background(), dbx.DialectPostgres, "postgres://vault@localhost/vault")
	require.ErrorIs(t, err, common.ErrStorageFailure)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, "postgres://vault@localhost/vault", gotDSN)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "vault.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("vault.db"))
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "x.db?_pragma=journal_mode(WAL)", sqliteDSN("x.db?_pragma=journal_mode(WAL)"))
}
