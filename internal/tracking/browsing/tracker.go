package browsing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/google/uuid"
)

// DwellThreshold is the session length a visit must exceed to be kept.
const DwellThreshold = 3000 * time.Millisecond

var ErrInvalidTimeSpent = errors.New("time spent must not be negative")

// PointWriter persists browsing points.
type PointWriter interface {
	SaveBrowsingPoint(ctx context.Context, p models.BrowsingPoint) error
}

type Tracker struct {
	store PointWriter
	clock clockx.Clock
	log   logging.Logger

	mu        sync.Mutex
	consentID string
	session   *models.BrowsingSession
}

func NewTracker(store PointWriter, clock clockx.Clock, log logging.Logger) *Tracker {
	return &Tracker{
		store: store,
		clock: clock,
		log:   log.With("component", "browsing_tracker"),
	}
}

// SetConsentID binds future recordings to id.
func (t *Tracker) SetConsentID(id string) {
	t.mu.Lock()
	t.consentID = id
	t.mu.Unlock()
}

// ConsentID returns the bound consent id, empty when unbound.
func (t *Tracker) ConsentID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consentID
}

// CurrentSession returns a copy of the open session.
func (t *Tracker) CurrentSession() (models.BrowsingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return models.BrowsingSession{}, false
	}
	return *t.session, true
}

// TrackPageVisit closes the open session, if any, and opens one for rawURL.
// An error from persisting the previous session is returned, but the new
// session is opened regardless.
func (t *Tracker) TrackPageVisit(ctx context.Context, rawURL, title string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.consentID == "" {
		t.log.Warn(ctx, "page visit ignored: no consent id bound", "url", rawURL)
		return nil
	}

	err := t.endLocked(ctx)

	t.session = &models.BrowsingSession{
		Domain:    ExtractDomain(rawURL),
		URL:       rawURL,
		Title:     title,
		StartedAt: t.clock.Now(),
	}
	t.log.Debug(ctx, "session opened", "domain", t.session.Domain)
	return err
}

// EndSession closes the open session through the dwell rule.
func (t *Tracker) EndSession(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endLocked(ctx)
}

// RecordActivity writes a point directly, without a session or dwell rule.
// timeSpent is in seconds.
func (t *Tracker) RecordActivity(ctx context.Context, domain, rawURL, title string, timeSpent int) error {
	if timeSpent < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeSpent, timeSpent)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.consentID == "" {
		t.log.Warn(ctx, "activity ignored: no consent id bound", "domain", domain)
		return nil
	}
	return t.save(ctx, domain, rawURL, title, timeSpent)
}

// Stop flushes the open session and unbinds the consent id.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.endLocked(ctx)
	t.consentID = ""
	t.session = nil
	return err
}

// endLocked clears the session whether or not it is persisted.
func (t *Tracker) endLocked(ctx context.Context) error {
	s := t.session
	if s == nil || t.consentID == "" {
		return nil
	}
	t.session = nil

	elapsed := t.clock.Now().Sub(s.StartedAt)
	if elapsed <= DwellThreshold {
		t.log.Debug(ctx, "session discarded below dwell threshold",
			"domain", s.Domain, "elapsed_ms", elapsed.Milliseconds())
		return nil
	}

	secs := int(math.Round(float64(elapsed.Milliseconds()) / 1000))
	return t.save(ctx, s.Domain, s.URL, s.Title, secs)
}

func (t *Tracker) save(ctx context.Context, domain, rawURL, title string, secs int) error {
	p := models.BrowsingPoint{
		ID:        uuid.NewString(),
		Domain:    domain,
		URL:       rawURL,
		Title:     title,
		TimeSpent: secs,
		Timestamp: t.clock.Now(),
		ConsentID: t.consentID,
	}
	if err := t.store.SaveBrowsingPoint(ctx, p); err != nil {
		t.log.Error(ctx, "store browsing point", "domain", domain, "error", err)
		return err
	}
	t.log.Debug(ctx, "browsing point stored", "domain", domain, "time_spent", secs)
	return nil
}

// ExtractDomain returns the host name of rawURL, or rawURL itself when it
// does not parse or has no host.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if h := u.Hostname(); h != "" {
		return h
	}
	return rawURL
}
