package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/services"
)

// LocationTracker is the part of location.Tracker the coordinator drives.
type LocationTracker interface {
	StartForeground(ctx context.Context, c models.Consent) error
	StartBackground(ctx context.Context, c models.Consent) error
	Stop(ctx context.Context)
}

// BrowsingTracker is the part of browsing.Tracker the coordinator drives.
type BrowsingTracker interface {
	SetConsentID(id string)
	Stop(ctx context.Context) error
}

type Coordinator struct {
	location LocationTracker
	browsing BrowsingTracker
	log      logging.Logger

	mu sync.Mutex
	// last applied consent per type
	applied map[models.ConsentType]models.Consent
}

func NewCoordinator(loc LocationTracker, br BrowsingTracker, log logging.Logger) *Coordinator {
	return &Coordinator{
		location: loc,
		browsing: br,
		log:      log.With("component", "coordinator"),
		applied:  make(map[models.ConsentType]models.Consent),
	}
}

// Attach subscribes the coordinator to registry changes.
func (c *Coordinator) Attach(registry services.ConsentRegistry) (cancel func()) {
	return registry.Subscribe(func(ctx context.Context, _ *models.Consent, after models.Consent) {
		c.Apply(ctx, after)
	})
}

// Reconcile applies every consent in list, as after loading from storage.
func (c *Coordinator) Reconcile(ctx context.Context, list []models.Consent) {
	for _, consent := range list {
		c.Apply(ctx, consent)
	}
}

// Apply brings the tracker of consent's category in line with it. Tracker
// failures are logged; they are also visible through the tracker's Err.
func (c *Coordinator) Apply(ctx context.Context, consent models.Consent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, seen := c.applied[consent.Type]
	c.applied[consent.Type] = consent

	switch consent.Type {
	case models.ConsentLocation:
		c.applyLocation(ctx, prev, seen, consent)
	case models.ConsentBrowsing:
		c.applyBrowsing(ctx, prev, seen, consent)
	default:
		c.log.Debug(ctx, "no collector for consent type", "type", string(consent.Type))
	}
}

func (c *Coordinator) applyLocation(ctx context.Context, prev models.Consent, seen bool, next models.Consent) {
	if !next.Enabled {
		if !seen || prev.Enabled {
			c.location.Stop(ctx)
		}
		return
	}

	if seen && prev.Enabled && prev.ID == next.ID &&
		prev.Granularity == next.Granularity && prev.AllowBackground == next.AllowBackground {
		return
	}

	if next.AllowBackground {
		err := c.location.StartBackground(ctx, next)
		if err == nil {
			return
		}
		if !errors.Is(err, common.ErrPermissionDenied) {
			c.log.Error(ctx, "start background location tracking", "error", err)
			return
		}
		c.log.Warn(ctx, "background location denied, falling back to foreground", "error", err)
	}

	if err := c.location.StartForeground(ctx, next); err != nil {
		c.log.Error(ctx, "start location tracking", "error", err)
	}
}

func (c *Coordinator) applyBrowsing(ctx context.Context, prev models.Consent, seen bool, next models.Consent) {
	if next.Enabled {
		c.browsing.SetConsentID(next.ID)
		return
	}
	if !seen || prev.Enabled {
		if err := c.browsing.Stop(ctx); err != nil {
			c.log.Error(ctx, "stop browsing tracking", "error", err)
		}
	}
}

// StopAll stops both trackers and forgets applied consents.
func (c *Coordinator) StopAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.location.Stop(ctx)
	err := c.browsing.Stop(ctx)
	clear(c.applied)
	return err
}

// Refresh re-applies consent even when nothing changed, e.g. after the user
// granted a permission that made the previous start fail.
func (c *Coordinator) Refresh(ctx context.Context, consent models.Consent) {
	c.mu.Lock()
	delete(c.applied, consent.Type)
	c.mu.Unlock()

	c.Apply(ctx, consent)
}
