package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/timex"
	"github.com/google/uuid"
)

// Transmitter delivers a batch to wherever synced data goes. It must
// tolerate receiving the same points twice.
type Transmitter interface {
	TransmitLocations(ctx context.Context, points []models.LocationPoint) error
	TransmitBrowsing(ctx context.Context, points []models.BrowsingPoint) error
}

// SyncStore is the slice of the persistent store the sync cycle drives.
type SyncStore interface {
	GetUnsyncedLocationPoints(ctx context.Context) ([]models.LocationPoint, error)
	GetUnsyncedBrowsingPoints(ctx context.Context) ([]models.BrowsingPoint, error)
	MarkLocationSynced(ctx context.Context, ids []string) error
	MarkBrowsingSynced(ctx context.Context, ids []string) error
	RecordSync(ctx context.Context, e models.SyncLogEntry) error
}

// SyncResult counts the points a cycle marked synced.
type SyncResult struct {
	Locations int
	Browsing  int
}

// SyncService runs the get unsynced, transmit, mark synced cycle.
// Delivery is at-least-once: a failure after transmit leaves the points
// unsynced and they are sent again next cycle.
type SyncService interface {
	RunOnce(ctx context.Context) (SyncResult, error)
	// Run calls RunOnce every interval until ctx is done. A zero interval
	// means manual sync and returns immediately.
	Run(ctx context.Context, interval time.Duration) error
}

type syncService struct {
	store SyncStore
	tx    Transmitter
	users UserService
	clock clockx.Clock
	log   logging.Logger
}

func NewSyncService(store SyncStore, tx Transmitter, users UserService, clock clockx.Clock, log logging.Logger) SyncService {
	return &syncService{store: store, tx: tx, users: users, clock: clock, log: log}
}

func (s *syncService) RunOnce(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	user, err := s.users.EnsureUser(ctx)
	if err != nil {
		s.log.Error(ctx, "sync cycle aborted", "error", err)
		return res, fmt.Errorf("sync: %w", err)
	}

	locErr := s.syncLocations(ctx, user.ID, &res)
	brErr := s.syncBrowsing(ctx, user.ID, &res)

	if err := errors.Join(locErr, brErr); err != nil {
		s.log.Error(ctx, "sync cycle failed", "error", err)
		return res, err
	}

	if res.Locations+res.Browsing > 0 {
		if err := s.users.TouchLastSync(ctx, s.clock.Now()); err != nil {
			return res, fmt.Errorf("sync: update last sync: %w", err)
		}
	}
	s.log.Info(ctx, "sync cycle done", "locations", res.Locations, "browsing", res.Browsing)
	return res, nil
}

func (s *syncService) syncLocations(ctx context.Context, userID string, res *SyncResult) error {
	pts, err := s.store.GetUnsyncedLocationPoints(ctx)
	if err != nil || len(pts) == 0 {
		return err
	}
	if err := s.tx.TransmitLocations(ctx, pts); err != nil {
		return fmt.Errorf("transmit locations: %w", err)
	}

	ids := make([]string, len(pts))
	stamps := make([]time.Time, len(pts))
	for i, p := range pts {
		ids[i], stamps[i] = p.ID, p.Timestamp
	}
	if err := s.store.MarkLocationSynced(ctx, ids); err != nil {
		return err
	}
	res.Locations = len(pts)
	return s.record(ctx, userID, models.SyncDataLocation, stamps)
}

func (s *syncService) syncBrowsing(ctx context.Context, userID string, res *SyncResult) error {
	pts, err := s.store.GetUnsyncedBrowsingPoints(ctx)
	if err != nil || len(pts) == 0 {
		return err
	}
	if err := s.tx.TransmitBrowsing(ctx, pts); err != nil {
		return fmt.Errorf("transmit browsing: %w", err)
	}

	ids := make([]string, len(pts))
	stamps := make([]time.Time, len(pts))
	for i, p := range pts {
		ids[i], stamps[i] = p.ID, p.Timestamp
	}
	if err := s.store.MarkBrowsingSynced(ctx, ids); err != nil {
		return err
	}
	res.Browsing = len(pts)
	return s.record(ctx, userID, models.SyncDataBrowsing, stamps)
}

func (s *syncService) record(ctx context.Context, userID string, dt models.SyncDataType, stamps []time.Time) error {
	start, end := stamps[0], stamps[0]
	for _, ts := range stamps[1:] {
		if ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
	}
	return s.store.RecordSync(ctx, models.SyncLogEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		DataType:  dt,
		Count:     len(stamps),
		DateStart: start,
		DateEnd:   end,
		SyncedAt:  timex.Truncate(s.clock.Now()),
	})
}

func (s *syncService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// errors are logged by RunOnce; the next tick retries
			_, _ = s.RunOnce(ctx)
		}
	}
}
