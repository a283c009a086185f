package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/config"
	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/keys"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/outbox"
	"github.com/dmitrijs2005/polaris/internal/services"
	"github.com/dmitrijs2005/polaris/internal/storage"
	"github.com/dmitrijs2005/polaris/internal/tracking/browsing"
	"github.com/dmitrijs2005/polaris/internal/tracking/location"
)

type App struct {
	config *config.Config
	logger logging.Logger
	clock  clockx.Clock

	store    *storage.Store
	keys     *keys.Manager
	consents services.ConsentRegistry
	users    services.UserService
	sync     services.SyncService
	outbox   *outbox.FileTransmitter

	fixes       *location.ManualSource
	permissions *location.StaticPermissions
	location    *location.Tracker
	browsing    *browsing.Tracker
	coordinator *Coordinator
	detach      func()
}

type Option func(*App)

func WithClock(c clockx.Clock) Option {
	return func(a *App) { a.clock = c }
}

// NewApp opens storage and builds every component. Call Initialize before
// use and Close when done.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, opts ...Option) (*App, error) {
	a := &App{config: c, logger: logger, clock: clockx.Real()}
	for _, o := range opts {
		o(a)
	}

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, dialect, c.DatabaseDSN,
		storage.WithClock(a.clock), storage.WithLogger(logger.With("component", "storage")))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	a.store = store

	a.keys = keys.NewManager(store, logger.With("component", "keys"))

	tx, err := outbox.NewFileTransmitter(c.OutboxDir, a.keys, a.clock, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.outbox = tx

	a.consents = services.NewConsentRegistry(store, a.clock, logger.With("component", "consents"))
	a.users = services.NewUserService(store, a.keys, a.clock, logger.With("component", "users"))
	a.sync = services.NewSyncService(store, tx, a.users, a.clock, logger.With("component", "sync"))

	a.fixes = location.NewManualSource()
	a.permissions = location.NewStaticPermissions(c.GrantForeground, c.GrantBackground)
	a.location = location.NewTracker(a.fixes, a.permissions, store, logger)
	a.browsing = browsing.NewTracker(store, a.clock, logger)

	a.coordinator = NewCoordinator(a.location, a.browsing, logger)
	a.detach = a.coordinator.Attach(a.consents)

	return a, nil
}

// Initialize migrates the schema, creates the vault key and user, loads
// consents, starts the trackers they enable and runs one sync cycle.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.store.Initialize(ctx); err != nil {
		return err
	}
	if _, err := a.keys.EnsureKey(ctx); err != nil {
		return err
	}

	user, err := a.users.EnsureUser(ctx)
	if err != nil {
		return err
	}

	if err := a.consents.Initialize(ctx); err != nil {
		return err
	}
	a.coordinator.Reconcile(ctx, a.consents.List())

	a.logger.Info(ctx, "vault ready", "user_id", user.ID)

	if _, err := a.sync.RunOnce(ctx); err != nil {
		a.logger.Warn(ctx, "initial sync failed", "error", err)
	}
	return nil
}

// RunSync runs the periodic sync loop until ctx is done.
func (a *App) RunSync(ctx context.Context) error {
	if a.config.SyncInterval == config.SyncManual {
		a.logger.Info(ctx, "periodic sync disabled")
		return nil
	}
	a.logger.Info(ctx, "periodic sync started", "interval", a.config.SyncInterval.String())

	err := a.sync.Run(ctx, a.config.SyncInterval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Logout stops collection and wipes consents and collected data. The vault
// key, identity and user record are kept. Consents are re-seeded with
// defaults afterwards.
func (a *App) Logout(ctx context.Context) error {
	if err := a.coordinator.StopAll(ctx); err != nil {
		a.logger.Warn(ctx, "flush browsing session on logout", "error", err)
	}
	if err := a.store.ClearAll(ctx); err != nil {
		return err
	}
	if err := a.consents.Initialize(ctx); err != nil {
		return err
	}
	a.logger.Info(ctx, "vault data cleared")
	return nil
}

// Close stops the trackers and closes storage.
func (a *App) Close(ctx context.Context) error {
	a.detach()
	if err := a.coordinator.StopAll(ctx); err != nil {
		a.logger.Warn(ctx, "flush browsing session on close", "error", err)
	}
	return a.store.Close()
}

// RefreshLocation re-applies the location consent, e.g. after permissions
// changed.
func (a *App) RefreshLocation(ctx context.Context) {
	if c, ok := a.consents.GetByType(models.ConsentLocation); ok {
		a.coordinator.Refresh(ctx, c)
	}
}

// NotifyContext returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

func (a *App) Config() *config.Config                   { return a.config }
func (a *App) Logger() logging.Logger                   { return a.logger }
func (a *App) Clock() clockx.Clock                      { return a.clock }
func (a *App) Store() *storage.Store                    { return a.store }
func (a *App) Keys() *keys.Manager                      { return a.keys }
func (a *App) Consents() services.ConsentRegistry       { return a.consents }
func (a *App) Users() services.UserService              { return a.users }
func (a *App) Sync() services.SyncService               { return a.sync }
func (a *App) Outbox() *outbox.FileTransmitter          { return a.outbox }
func (a *App) Fixes() *location.ManualSource            { return a.fixes }
func (a *App) Permissions() *location.StaticPermissions { return a.permissions }
func (a *App) Location() *location.Tracker              { return a.location }
func (a *App) Browsing() *browsing.Tracker              { return a.browsing }
