package tripadvisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "tripadvisor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore_GetMiss(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	want := Details{LocationID: "123", Rating: 4.5, NumReviews: 320, PriceLevel: "$$", Found: true}

	require.NoError(t, s.Put(context.Background(), "k", want, time.Hour))
	got, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, *got)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(context.Background(), "k", Details{Rating: 3.0, Found: true}, time.Hour))
	require.NoError(t, s.Put(context.Background(), "k", Details{Rating: 4.0, Found: true}, time.Hour))

	got, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 4.0, got.Rating, 1e-9)
}

func TestStore_ExpiredEntryIsMiss(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(context.Background(), "k", Details{Found: true}, -time.Minute))

	_, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)

	pruned, err := s.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}

func TestStore_QuotaAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	used, err := s.QuotaUsed(ctx, "2026-08")
	require.NoError(t, err)
	assert.Zero(t, used)

	require.NoError(t, s.AddQuota(ctx, "2026-08", 2))
	require.NoError(t, s.AddQuota(ctx, "2026-08", 3))
	used, err = s.QuotaUsed(ctx, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 5, used)

	// Months are independent ledgers.
	used, err = s.QuotaUsed(ctx, "2026-09")
	require.NoError(t, err)
	assert.Zero(t, used)
}
