package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/migrations"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/repositories/browsing"
	"github.com/dmitrijs2005/polaris/internal/repositories/consents"
	"github.com/dmitrijs2005/polaris/internal/repositories/locations"
	"github.com/dmitrijs2005/polaris/internal/repositories/metadata"
	"github.com/dmitrijs2005/polaris/internal/repositories/synclog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// UnsyncedBatchLimit caps every unsynced read.
const UnsyncedBatchLimit = 100

// markChunkSize keeps IN lists well under SQLite's bound-variable limit.
const markChunkSize = 500

// Store is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
	clock   clockx.Clock
	log     logging.Logger

	consents  consents.Repository
	locations locations.Repository
	browsing  browsing.Repository
	syncLog   synclog.Repository
	metadata  metadata.Repository
}

// Option customises a Store.
type Option func(*Store)

// WithClock sets the clock used for statistics windows.
func WithClock(c clockx.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the database named by dsn and pings it. SQLite DSNs get
// foreign keys and a busy timeout enabled unless they set pragmas already.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string, opts ...Option) (*Store, error) {
	if dialect == dbx.DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlOpen(dialect.DriverName(), dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}

	if dialect == dbx.DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storageErr("ping", err)
	}

	return New(db, dialect, opts...), nil
}

// New wraps an already opened database.
func New(db *sql.DB, dialect dbx.Dialect, opts ...Option) *Store {
	s := &Store{
		db:        db,
		dialect:   dialect,
		clock:     clockx.Real(),
		log:       logging.Nop(),
		consents:  consents.NewSQLRepository(db, dialect),
		locations: locations.NewSQLRepository(db, dialect),
		browsing:  browsing.NewSQLRepository(db, dialect),
		syncLog:   synclog.NewSQLRepository(db, dialect),
		metadata:  metadata.NewSQLRepository(db, dialect),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorageFailure, err)
}

// Initialize ensures every table and index exists.
func (s *Store) Initialize(ctx context.Context) error {
	if err := migrations.Up(ctx, s.db, s.dialect); err != nil {
		return storageErr("initialize", err)
	}
	s.log.Debug(ctx, "schema ready", "dialect", string(s.dialect))
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storageErr("close", err)
	}
	return nil
}

// SaveConsent inserts c or replaces the row with the same id.
func (s *Store) SaveConsent(ctx context.Context, c models.Consent) error {
	if err := s.consents.Upsert(ctx, c); err != nil {
		return storageErr("save consent", err)
	}
	return nil
}

// GetConsents returns all consents, most recently updated first.
func (s *Store) GetConsents(ctx context.Context) ([]models.Consent, error) {
	list, err := s.consents.List(ctx)
	if err != nil {
		return nil, storageErr("get consents", err)
	}
	return list, nil
}

// GetConsentByType returns nil when no consent of type t exists.
func (s *Store) GetConsentByType(ctx context.Context, t models.ConsentType) (*models.Consent, error) {
	c, err := s.consents.GetByType(ctx, t)
	if err != nil {
		return nil, storageErr("get consent by type", err)
	}
	return c, nil
}

func (s *Store) SaveLocationPoint(ctx context.Context, p models.LocationPoint) error {
	if err := s.locations.Insert(ctx, p); err != nil {
		return storageErr("save location point", err)
	}
	return nil
}

func (s *Store) SaveBrowsingPoint(ctx context.Context, p models.BrowsingPoint) error {
	if err := s.browsing.Insert(ctx, p); err != nil {
		return storageErr("save browsing point", err)
	}
	return nil
}

// GetUnsyncedLocationPoints returns at most UnsyncedBatchLimit unsynced
// points, newest first.
func (s *Store) GetUnsyncedLocationPoints(ctx context.Context) ([]models.LocationPoint, error) {
	pts, err := s.locations.ListUnsynced(ctx, UnsyncedBatchLimit)
	if err != nil {
		return nil, storageErr("get unsynced locations", err)
	}
	return pts, nil
}

// GetUnsyncedBrowsingPoints returns at most UnsyncedBatchLimit unsynced
// points, newest first.
func (s *Store) GetUnsyncedBrowsingPoints(ctx context.Context) ([]models.BrowsingPoint, error) {
	pts, err := s.browsing.ListUnsynced(ctx, UnsyncedBatchLimit)
	if err != nil {
		return nil, storageErr("get unsynced browsing", err)
	}
	return pts, nil
}

// MarkLocationSynced flags ids as synced atomically. Re-marking is a no-op.
func (s *Store) MarkLocationSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := locations.NewSQLRepository(tx, s.dialect)
		for _, chunk := range dbx.Chunk(ids, markChunkSize) {
			if err := repo.MarkSynced(ctx, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("mark locations synced", err)
	}
	return nil
}

// MarkBrowsingSynced flags ids as synced atomically. Re-marking is a no-op.
func (s *Store) MarkBrowsingSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := browsing.NewSQLRepository(tx, s.dialect)
		for _, chunk := range dbx.Chunk(ids, markChunkSize) {
			if err := repo.MarkSynced(ctx, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("mark browsing synced", err)
	}
	return nil
}

func (s *Store) windowStart(windowDays int) time.Time {
	return s.clock.Now().Add(-time.Duration(windowDays) * 24 * time.Hour)
}

// GetLocationStats covers points newer than now minus windowDays.
func (s *Store) GetLocationStats(ctx context.Context, windowDays int) (models.LocationStats, error) {
	st, err := s.locations.Stats(ctx, s.windowStart(windowDays))
	if err != nil {
		return models.LocationStats{}, storageErr("location stats", err)
	}
	return st, nil
}

// GetBrowsingStats covers visits newer than now minus windowDays.
func (s *Store) GetBrowsingStats(ctx context.Context, windowDays int) (models.BrowsingStats, error) {
	st, err := s.browsing.Stats(ctx, s.windowStart(windowDays))
	if err != nil {
		return models.BrowsingStats{}, storageErr("browsing stats", err)
	}
	return st, nil
}

// ClearAll empties the four data tables in one transaction. The schema and
// the key/value slots are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := browsing.NewSQLRepository(tx, s.dialect).DeleteAll(ctx); err != nil {
			return err
		}
		if err := locations.NewSQLRepository(tx, s.dialect).DeleteAll(ctx); err != nil {
			return err
		}
		if err := synclog.NewSQLRepository(tx, s.dialect).DeleteAll(ctx); err != nil {
			return err
		}
		return consents.NewSQLRepository(tx, s.dialect).DeleteAll(ctx)
	})
	if err != nil {
		return storageErr("clear all", err)
	}
	s.log.Info(ctx, "all collected data cleared")
	return nil
}

// RecordSync appends a sync log entry.
func (s *Store) RecordSync(ctx context.Context, e models.SyncLogEntry) error {
	if err := s.syncLog.Insert(ctx, e); err != nil {
		return storageErr("record sync", err)
	}
	return nil
}

// GetSyncLog lists a user's sync batches, newest first.
func (s *Store) GetSyncLog(ctx context.Context, userID string) ([]models.SyncLogEntry, error) {
	list, err := s.syncLog.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("get sync log", err)
	}
	return list, nil
}

// SaveUser overwrites the user slot.
func (s *Store) SaveUser(ctx context.Context, u models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return storageErr("encode user", err)
	}
	if err := s.metadata.Write(ctx, common.MetadataKeyUser, b); err != nil {
		return storageErr("save user", err)
	}
	return nil
}

// GetUser returns nil when no user has been created yet.
func (s *Store) GetUser(ctx context.Context) (*models.User, error) {
	b, err := s.metadata.Read(ctx, common.MetadataKeyUser)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	if b == nil {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, storageErr("decode user", err)
	}
	return &u, nil
}

// SaveEncryptionKey stores key hex-encoded, overwriting any previous key.
func (s *Store) SaveEncryptionKey(ctx context.Context, key []byte) error {
	if err := s.metadata.Write(ctx, common.MetadataKeyEncryptionKey, []byte(hex.EncodeToString(key))); err != nil {
		return storageErr("save encryption key", err)
	}
	return nil
}

// GetEncryptionKey returns nil when no key has been stored.
func (s *Store) GetEncryptionKey(ctx context.Context) ([]byte, error) {
	return s.getHexSlot(ctx, common.MetadataKeyEncryptionKey)
}

// SaveIdentityKey stores the sealed identity private key.
func (s *Store) SaveIdentityKey(ctx context.Context, sealed string) error {
	if err := s.metadata.Write(ctx, common.MetadataKeyIdentityKey, []byte(sealed)); err != nil {
		return storageErr("save identity key", err)
	}
	return nil
}

// GetIdentityKey returns "" when no identity has been stored.
func (s *Store) GetIdentityKey(ctx context.Context) (string, error) {
	b, err := s.metadata.Read(ctx, common.MetadataKeyIdentityKey)
	if err != nil {
		return "", storageErr("get identity key", err)
	}
	return string(b), nil
}

func (s *Store) getHexSlot(ctx context.Context, key string) ([]byte, error) {
	b, err := s.metadata.Read(ctx, key)
	if err != nil {
		return nil, storageErr("get "+key, err)
	}
	if b == nil {
		return nil, nil
	}
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return nil, storageErr("decode "+key, err)
	}
	return raw, nil
}
