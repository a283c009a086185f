package locations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/polaris/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, p models.LocationPoint) error
	ListUnsynced(ctx context.Context, limit int) ([]models.LocationPoint, error)
	MarkSynced(ctx context.Context, ids []string) error
	Stats(ctx context.Context, since time.Time) (models.LocationStats, error)
	DeleteAll(ctx context.Context) error
}
