package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/dmitrijs2005/polaris/internal/storage"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T, clock clockx.Clock) *storage.Store {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(ctx, dbx.DialectSQLite, "file:"+t.Name()+"?mode=memory&cache=shared", storage.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(ctx))
	return s
}
