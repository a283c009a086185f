package services

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"sync"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/dmitrijs2005/polaris/internal/timex"
	"github.com/google/uuid"
)

// UserStore holds the single user slot.
type UserStore interface {
	GetUser(ctx context.Context) (*models.User, error)
	SaveUser(ctx context.Context, u models.User) error
}

// IdentityProvider yields the vault's public identity key.
type IdentityProvider interface {
	EnsureIdentity(ctx context.Context) (ed25519.PublicKey, error)
}

// UserService owns the vault user record.
type UserService interface {
	// EnsureUser returns the stored user, creating it on first launch.
	EnsureUser(ctx context.Context) (models.User, error)
	// TouchLastSync records t as the user's last successful sync.
	TouchLastSync(ctx context.Context, t time.Time) error
}

type userService struct {
	store    UserStore
	identity IdentityProvider
	clock    clockx.Clock
	log      logging.Logger

	mu sync.Mutex
}

func NewUserService(store UserStore, identity IdentityProvider, clock clockx.Clock, log logging.Logger) UserService {
	return &userService{store: store, identity: identity, clock: clock, log: log}
}

func (s *userService) EnsureUser(ctx context.Context) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx)
	if err != nil {
		return models.User{}, err
	}
	if u != nil {
		return *u, nil
	}

	pub, err := s.identity.EnsureIdentity(ctx)
	if err != nil {
		return models.User{}, err
	}

	created := models.User{
		ID:        uuid.NewString(),
		PublicKey: hex.EncodeToString(pub),
		CreatedAt: timex.Truncate(s.clock.Now()),
	}
	if err := s.store.SaveUser(ctx, created); err != nil {
		return models.User{}, err
	}
	s.log.Info(ctx, "user created", "user_id", created.ID)
	return created, nil
}

func (s *userService) TouchLastSync(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	u.LastSync = timex.Truncate(t)
	return s.store.SaveUser(ctx, *u)
}
