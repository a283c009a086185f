package metadata

import (
	"context"
)

// Repository reads and writes named metadata slots.
type Repository interface {
	// Read returns nil, nil for a slot that was never written.
	Read(ctx context.Context, slot string) ([]byte, error)
	Write(ctx context.Context, slot string, value []byte) error
}
