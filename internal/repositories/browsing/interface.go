package browsing

import (
	"context"
	"time"

	"github.com/dmitrijs2005/polaris/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, p models.BrowsingPoint) error
	ListUnsynced(ctx context.Context, limit int) ([]models.BrowsingPoint, error)
	MarkSynced(ctx context.Context, ids []string) error
	Stats(ctx context.Context, since time.Time) (models.BrowsingStats, error)
	DeleteAll(ctx context.Context) error
}
