package location

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/google/uuid"
)

// PointWriter persists location points.
type PointWriter interface {
	SaveLocationPoint(ctx context.Context, p models.LocationPoint) error
}

// Tracker turns pushed fixes into stored LocationPoints while started.
// Operations are serialized; fixes are written in arrival order.
type Tracker struct {
	source FixSource
	perms  Permissions
	store  PointWriter
	log    logging.Logger

	mu      sync.Mutex
	state   State
	sub     Subscription
	consent models.Consent
	// gen identifies the live subscription; handlers of older ones drop fixes
	gen atomic.Uint64

	writeMu sync.Mutex

	statusMu sync.Mutex
	lastErr  error
	lastFix  *Fix
}

func NewTracker(source FixSource, perms Permissions, store PointWriter, log logging.Logger) *Tracker {
	return &Tracker{
		source: source,
		perms:  perms,
		store:  store,
		log:    log.With("component", "location_tracker"),
		state:  StateIdle,
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the last tracking failure, or nil once tracking succeeds.
func (t *Tracker) Err() error {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	return t.lastErr
}

// LastFix returns the most recently stored fix.
func (t *Tracker) LastFix() (Fix, bool) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	if t.lastFix == nil {
		return Fix{}, false
	}
	return *t.lastFix, true
}

// CheckPermission reports whether foreground access is granted.
func (t *Tracker) CheckPermission(ctx context.Context) (bool, error) {
	return t.perms.ForegroundGranted(ctx)
}

// RequestPermission asks for foreground access. A refusal is reported as
// common.ErrPermissionDenied and kept as the tracker's error state.
func (t *Tracker) RequestPermission(ctx context.Context) error {
	ok, err := t.perms.RequestForeground(ctx)
	if err == nil && !ok {
		err = common.ErrPermissionDenied
	} else if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrPermissionDenied, err)
	}
	if err != nil {
		t.setErr(err)
	}
	return err
}

// StartForeground begins tracking for consent, requesting permission first
// when needed. Calling it while tracking restarts the subscription with the
// consent's current settings.
func (t *Tracker) StartForeground(ctx context.Context, consent models.Consent) error {
	return t.start(ctx, consent, ModeForeground)
}

// StartBackground is StartForeground for background delivery. It requires
// consent.AllowBackground and the platform's background permission.
func (t *Tracker) StartBackground(ctx context.Context, consent models.Consent) error {
	if !consent.AllowBackground {
		err := fmt.Errorf("%w: %w: background collection not allowed by consent",
			common.ErrTrackingStartFailure, common.ErrPermissionDenied)
		t.setErr(err)
		return err
	}
	return t.start(ctx, consent, ModeBackground)
}

func (t *Tracker) start(ctx context.Context, consent models.Consent, mode Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consent = consent
	err := t.dispatch(ctx, Event{Kind: EventStart, Mode: mode})
	if err != nil {
		t.log.Warn(ctx, "location tracking not started", "mode", mode.String(), "error", err)
		return err
	}

	t.setErr(nil)
	t.log.Info(ctx, "location tracking started",
		"mode", mode.String(), "accuracy", AccuracyFor(consent.Granularity).String(), "consent_id", consent.ID)
	return nil
}

// Stop cancels the active subscription. Cancellation failures are logged,
// never returned.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.state
	_ = t.dispatch(ctx, Event{Kind: EventStop})
	if prev != t.state {
		t.log.Info(ctx, "location tracking stopped", "from", prev.String())
	}
}

// dispatch feeds ev through Next and runs the resulting effects, queueing
// follow-up events they produce. It returns the error recorded on the way.
// Callers hold t.mu.
func (t *Tracker) dispatch(ctx context.Context, ev Event) error {
	var recorded error

	queue := []Event{ev}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		next, effects := Next(t.state, e)
		t.state = next

		for _, eff := range effects {
			switch eff.Kind {
			case EffectRequestPermission:
				queue = append(queue, t.requestPermission(ctx, eff.Mode))
			case EffectSubscribe:
				if follow := t.subscribe(ctx, eff.Mode); follow != nil {
					queue = append(queue, *follow)
				}
			case EffectUnsubscribe:
				t.unsubscribe(ctx)
			case EffectRecordError:
				recorded = eff.Err
				t.setErr(eff.Err)
			}
		}
	}
	return recorded
}

func (t *Tracker) requestPermission(ctx context.Context, mode Mode) Event {
	granted, err := t.ensure(ctx, t.perms.ForegroundGranted, t.perms.RequestForeground)
	if err == nil && granted && mode == ModeBackground {
		granted, err = t.ensure(ctx, t.perms.BackgroundGranted, t.perms.RequestBackground)
	}
	if err != nil || !granted {
		return Event{Kind: EventPermissionDenied, Mode: mode, Err: err}
	}
	return Event{Kind: EventPermissionGranted, Mode: mode}
}

func (t *Tracker) ensure(ctx context.Context, check, request func(context.Context) (bool, error)) (bool, error) {
	ok, err := check(ctx)
	if err != nil || ok {
		return ok, err
	}
	return request(ctx)
}

func (t *Tracker) subscribe(ctx context.Context, mode Mode) *Event {
	opts := WatchOptions{
		Accuracy:       AccuracyFor(t.consent.Granularity),
		Interval:       DefaultInterval,
		DistanceMeters: DefaultDistanceMeters,
		Background:     mode == ModeBackground,
	}

	gen := t.gen.Add(1)
	consentID := t.consent.ID

	sub, err := t.source.Subscribe(ctx, opts, func(ctx context.Context, fixes []Fix) {
		t.handle(ctx, gen, consentID, fixes)
	})
	if err != nil {
		return &Event{Kind: EventSubscribeFailed, Err: err}
	}
	t.sub = sub
	return nil
}

func (t *Tracker) unsubscribe(ctx context.Context) {
	t.gen.Add(1)
	if t.sub == nil {
		return
	}
	if err := t.sub.Cancel(); err != nil {
		t.log.Warn(ctx, "cancel location subscription", "error", err)
	}
	t.sub = nil
}

// handle stores fixes in order. Write errors are logged and kept in Err.
func (t *Tracker) handle(ctx context.Context, gen uint64, consentID string, fixes []Fix) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for _, f := range fixes {
		if t.gen.Load() != gen {
			t.log.Debug(ctx, "dropping fix from cancelled subscription")
			return
		}

		p := models.LocationPoint{
			ID:        uuid.NewString(),
			Latitude:  f.Latitude,
			Longitude: f.Longitude,
			Accuracy:  f.Accuracy,
			Timestamp: f.Timestamp,
			ConsentID: consentID,
		}
		if err := t.store.SaveLocationPoint(ctx, p); err != nil {
			t.log.Error(ctx, "store location point", "error", err)
			t.setErr(err)
			continue
		}

		fix := f
		t.statusMu.Lock()
		t.lastFix = &fix
		t.statusMu.Unlock()
	}
}

func (t *Tracker) setErr(err error) {
	t.statusMu.Lock()
	t.lastErr = err
	t.statusMu.Unlock()
}
