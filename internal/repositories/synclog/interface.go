package synclog

import (
	"context"

	"github.com/dmitrijs2005/polaris/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, e models.SyncLogEntry) error
	ListByUser(ctx context.Context, userID string) ([]models.SyncLogEntry, error)
	DeleteAll(ctx context.Context) error
}
