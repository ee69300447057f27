package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/pkg/logger"
)

func newTestBlacklist(t *testing.T) (*Blacklist, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	b := New(store.NewMemoryStore(), logger.NewNoopLogger(),
		WithClock(func() time.Time { return now }))
	return b, &now
}

func TestBlacklist_AddAndLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("should revoke and un-revoke a token", func(t *testing.T) {
		b, now := newTestBlacklist(t)

		assert.False(t, b.IsBlacklisted(ctx, "tok-1"))

		require.NoError(t, b.Add(ctx, "tok-1", now.Add(time.Hour)))
		assert.True(t, b.IsBlacklisted(ctx, "tok-1"))

		require.NoError(t, b.Remove(ctx, "tok-1"))
		assert.False(t, b.IsBlacklisted(ctx, "tok-1"))

		// Removing twice is a no-op.
		assert.NoError(t, b.Remove(ctx, "tok-1"))
	})

	t.Run("should default the entry TTL when expiry is zero", func(t *testing.T) {
		b, now := newTestBlacklist(t)

		require.NoError(t, b.Add(ctx, "tok-2", time.Time{}))
		assert.True(t, b.IsBlacklisted(ctx, "tok-2"))

		// Just short of 7 days: still revoked.
		*now = now.Add(7*24*time.Hour - time.Minute)
		assert.True(t, b.IsBlacklisted(ctx, "tok-2"))

		// Past 7 days: gone.
		*now = now.Add(2 * time.Minute)
		assert.False(t, b.IsBlacklisted(ctx, "tok-2"))
	})

	t.Run("should lazily delete expired entries on lookup", func(t *testing.T) {
		b, now := newTestBlacklist(t)

		require.NoError(t, b.Add(ctx, "tok-3", now.Add(time.Minute)))
		*now = now.Add(2 * time.Minute)

		assert.False(t, b.IsBlacklisted(ctx, "tok-3"))

		stats := b.Stats(ctx)
		assert.Equal(t, 0, stats.TotalTokens, "expired entry should be deleted by the lookup")
	})

	t.Run("should fail open on storage errors", func(t *testing.T) {
		b := New(failingStore{}, logger.NewNoopLogger())
		assert.False(t, b.IsBlacklisted(ctx, "any"))
	})
}

func TestBlacklist_Cleanup(t *testing.T) {
	ctx := context.Background()
	b, now := newTestBlacklist(t)

	require.NoError(t, b.Add(ctx, "live-1", now.Add(time.Hour)))
	require.NoError(t, b.Add(ctx, "live-2", now.Add(2*time.Hour)))
	require.NoError(t, b.Add(ctx, "dead-1", now.Add(time.Minute)))

	*now = now.Add(30 * time.Minute)

	report := b.Cleanup(ctx)
	assert.Equal(t, 3, report.TotalChecked)
	assert.Equal(t, 1, report.ExpiredRemoved)
	assert.Equal(t, 0, report.Errors)

	assert.True(t, b.IsBlacklisted(ctx, "live-1"))
	assert.True(t, b.IsBlacklisted(ctx, "live-2"))
	assert.False(t, b.IsBlacklisted(ctx, "dead-1"))
}

func TestBlacklist_Stats(t *testing.T) {
	ctx := context.Background()
	b, now := newTestBlacklist(t)

	require.NoError(t, b.Add(ctx, "active", now.Add(time.Hour)))
	require.NoError(t, b.Add(ctx, "expired", now.Add(time.Second)))
	*now = now.Add(time.Minute)

	stats := b.Stats(ctx)
	assert.Equal(t, 2, stats.TotalTokens)
	assert.Equal(t, 1, stats.ActiveTokens)
	assert.Equal(t, 1, stats.ExpiredTokens)
}

func TestBlacklist_Clear(t *testing.T) {
	ctx := context.Background()
	b, now := newTestBlacklist(t)

	require.NoError(t, b.Add(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, b.Add(ctx, "b", now.Add(time.Hour)))

	require.NoError(t, b.Clear(ctx))

	assert.False(t, b.IsBlacklisted(ctx, "a"))
	assert.False(t, b.IsBlacklisted(ctx, "b"))
	assert.Equal(t, 0, b.Stats(ctx).TotalTokens)
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, key string, value interface{}) error {
	return assert.AnError
}

func (failingStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	return false, assert.AnError
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return assert.AnError
}

func (failingStore) ScanAll(ctx context.Context, fn func(key string, raw []byte) bool) error {
	return assert.AnError
}

func (failingStore) Close() error { return nil }
