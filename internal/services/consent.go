package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/common"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/timex"
	"github.com/google/uuid"
)

// ConsentStore is the persistence the registry writes through to.
type ConsentStore interface {
	SaveConsent(ctx context.Context, c models.Consent) error
	GetConsents(ctx context.Context) ([]models.Consent, error)
}

// ConsentObserver is called after a consent change has been persisted.
// before is nil when the consent was just created.
type ConsentObserver func(ctx context.Context, before *models.Consent, after models.Consent)

// ConsentRegistry is the source of truth for collection permissions.
//
// Contract:
//   - Initialize: load durable consents and seed a default record for every
//     known category that is missing.
//   - GetByType / List: read the cache only.
//   - Create: fails with common.ErrConsentExists when the type is taken.
//   - Update: fails with common.ErrConsentNotFound for an unknown id; keeps
//     ID and CreatedAt and strictly increases UpdatedAt.
//   - Toggle flips Enabled; Reset restores defaults for every known category.
//   - Err reports the last failed operation, cleared by the next success.
type ConsentRegistry interface {
	Initialize(ctx context.Context) error
	GetByType(t models.ConsentType) (models.Consent, bool)
	List() []models.Consent
	Create(ctx context.Context, draft models.ConsentDraft) (models.Consent, error)
	Update(ctx context.Context, id string, patch models.ConsentPatch) (models.Consent, error)
	Toggle(ctx context.Context, id string) (models.Consent, error)
	Reset(ctx context.Context) error
	Subscribe(obs ConsentObserver) (cancel func())
	Err() error
}

type consentRegistry struct {
	store ConsentStore
	clock clockx.Clock
	log   logging.Logger

	mu       sync.Mutex
	consents []models.Consent
	lastErr  error

	obsMu     sync.Mutex
	observers map[int]ConsentObserver
	nextObs   int
}

func NewConsentRegistry(store ConsentStore, clock clockx.Clock, log logging.Logger) ConsentRegistry {
	return &consentRegistry{
		store:     store,
		clock:     clock,
		log:       log,
		observers: make(map[int]ConsentObserver),
	}
}

type change struct {
	before *models.Consent
	after  models.Consent
}

func (r *consentRegistry) Initialize(ctx context.Context) error {
	var changes []change

	err := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		loaded, err := r.store.GetConsents(ctx)
		if err != nil {
			return err
		}
		r.consents = loaded

		for _, t := range models.KnownConsentTypes {
			if r.indexByTypeLocked(t) >= 0 {
				continue
			}
			c, err := r.createLocked(ctx, models.DefaultConsentDraft(t))
			if err != nil {
				return err
			}
			changes = append(changes, change{after: c})
		}
		return nil
	}()

	r.setErr(err)
	if err != nil {
		return err
	}

	r.log.Info(ctx, "consent registry initialized", "seeded", len(changes))
	r.notify(ctx, changes...)
	return nil
}

func (r *consentRegistry) GetByType(t models.ConsentType) (models.Consent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexByTypeLocked(t); i >= 0 {
		return r.consents[i], true
	}
	return models.Consent{}, false
}

func (r *consentRegistry) List() []models.Consent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.consents)
}

func (r *consentRegistry) Create(ctx context.Context, draft models.ConsentDraft) (models.Consent, error) {
	r.mu.Lock()
	c, err := r.createLocked(ctx, draft)
	r.mu.Unlock()

	r.setErr(err)
	if err != nil {
		return models.Consent{}, err
	}
	r.notify(ctx, change{after: c})
	return c, nil
}

func (r *consentRegistry) createLocked(ctx context.Context, draft models.ConsentDraft) (models.Consent, error) {
	if r.indexByTypeLocked(draft.Type) >= 0 {
		return models.Consent{}, fmt.Errorf("%w: %s", common.ErrConsentExists, draft.Type)
	}

	now := timex.Truncate(r.clock.Now())
	c := models.Consent{
		ID:              uuid.NewString(),
		Type:            draft.Type,
		Enabled:         draft.Enabled,
		Granularity:     draft.Granularity,
		DataRetention:   draft.DataRetention,
		AllowBackground: draft.AllowBackground,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.Validate(); err != nil {
		return models.Consent{}, fmt.Errorf("%w: %w", common.ErrInvalidConsent, err)
	}

	if err := r.store.SaveConsent(ctx, c); err != nil {
		return models.Consent{}, err
	}
	r.consents = append(r.consents, c)
	return c, nil
}

func (r *consentRegistry) Update(ctx context.Context, id string, patch models.ConsentPatch) (models.Consent, error) {
	r.mu.Lock()
	ch, err := r.updateLocked(ctx, id, patch)
	r.mu.Unlock()

	r.setErr(err)
	if err != nil {
		return models.Consent{}, err
	}
	r.notify(ctx, ch)
	return ch.after, nil
}

func (r *consentRegistry) updateLocked(ctx context.Context, id string, patch models.ConsentPatch) (change, error) {
	i := r.indexByIDLocked(id)
	if i < 0 {
		return change{}, fmt.Errorf("%w: %s", common.ErrConsentNotFound, id)
	}
	before := r.consents[i]

	after := patch.Apply(before)
	after.ID = before.ID
	after.Type = before.Type
	after.CreatedAt = before.CreatedAt
	after.UpdatedAt = r.nextUpdatedAt(before.UpdatedAt)

	if err := after.Validate(); err != nil {
		return change{}, fmt.Errorf("%w: %w", common.ErrInvalidConsent, err)
	}

	if err := r.store.SaveConsent(ctx, after); err != nil {
		return change{}, err
	}
	r.consents[i] = after
	return change{before: &before, after: after}, nil
}

// nextUpdatedAt keeps UpdatedAt strictly increasing even when the wall clock
// stalls or steps back.
func (r *consentRegistry) nextUpdatedAt(prev time.Time) time.Time {
	now := timex.Truncate(r.clock.Now())
	if floor := prev.Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}

func (r *consentRegistry) Toggle(ctx context.Context, id string) (models.Consent, error) {
	r.mu.Lock()
	i := r.indexByIDLocked(id)
	var enabled bool
	if i >= 0 {
		enabled = !r.consents[i].Enabled
	}
	r.mu.Unlock()

	if i < 0 {
		err := fmt.Errorf("%w: %s", common.ErrConsentNotFound, id)
		r.setErr(err)
		return models.Consent{}, err
	}
	return r.Update(ctx, id, models.ConsentPatch{Enabled: &enabled})
}

func (r *consentRegistry) Reset(ctx context.Context) error {
	var changes []change

	err := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()

		for _, t := range models.KnownConsentTypes {
			i := r.indexByTypeLocked(t)
			if i < 0 {
				continue
			}
			ch, err := r.updateLocked(ctx, r.consents[i].ID, models.DefaultsPatch())
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		return nil
	}()

	r.setErr(err)
	// observers still learn about the categories reset before a failure
	r.notify(ctx, changes...)
	return err
}

func (r *consentRegistry) Subscribe(obs ConsentObserver) func() {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()

	id := r.nextObs
	r.nextObs++
	r.observers[id] = obs

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *consentRegistry) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *consentRegistry) setErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// notify runs observers in subscription order without holding r.mu, so an
// observer may call back into the registry.
func (r *consentRegistry) notify(ctx context.Context, changes ...change) {
	if len(changes) == 0 {
		return
	}

	r.obsMu.Lock()
	ids := make([]int, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	obs := make([]ConsentObserver, 0, len(ids))
	for _, id := range ids {
		obs = append(obs, r.observers[id])
	}
	r.obsMu.Unlock()

	for _, ch := range changes {
		for _, o := range obs {
			o(ctx, ch.before, ch.after)
		}
	}
}

func (r *consentRegistry) indexByTypeLocked(t models.ConsentType) int {
	return slices.IndexFunc(r.consents, func(c models.Consent) bool { return c.Type == t })
}

func (r *consentRegistry) indexByIDLocked(id string) int {
	return slices.IndexFunc(r.consents, func(c models.Consent) bool { return c.ID == id })
}
