package consents

import (
	"context"

	"github.com/dmitrijs2005/polaris/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, c models.Consent) error
	List(ctx context.Context) ([]models.Consent, error)
	GetByType(ctx context.Context, t models.ConsentType) (*models.Consent, error)
	DeleteAll(ctx context.Context) error
}
