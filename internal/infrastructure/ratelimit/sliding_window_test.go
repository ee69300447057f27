package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/pkg/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T) (*SlidingWindowLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewSlidingWindowLimiter(store.NewMemoryStore(), logger.NewNoopLogger(), WithClock(clock.Now))
	return l, clock
}

func TestSlidingWindowLimiter_CheckLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow a fresh pair with full budget", func(t *testing.T) {
		l, _ := newTestLimiter(t)
		st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		assert.True(t, st.Allowed)
		assert.Equal(t, 5, st.Remaining)
	})

	t.Run("should not consume attempts on its own", func(t *testing.T) {
		l, _ := newTestLimiter(t)
		for i := 0; i < 10; i++ {
			st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
			assert.True(t, st.Allowed)
		}
	})

	t.Run("should deny after max attempts and allow at max-1", func(t *testing.T) {
		l, _ := newTestLimiter(t)

		for i := 0; i < 4; i++ {
			require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
		}
		st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		assert.True(t, st.Allowed)
		assert.Equal(t, 1, st.Remaining)

		require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
		st = l.CheckLimit(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		assert.False(t, st.Allowed)
		assert.Equal(t, 0, st.Remaining)
	})

	t.Run("should compute resetAt from the oldest in-window attempt", func(t *testing.T) {
		l, clock := newTestLimiter(t)
		start := clock.Now()

		require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
		clock.Advance(10 * time.Second)
		require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))

		st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		assert.Equal(t, start.Add(5*time.Minute).Unix(), st.ResetAt.Unix())
		assert.False(t, st.ResetAt.Before(clock.Now()))
	})

	t.Run("should not count attempts older than the window", func(t *testing.T) {
		l, clock := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
		}
		st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, time.Minute)
		assert.False(t, st.Allowed)

		clock.Advance(61 * time.Second)
		st = l.CheckLimit(ctx, "1.2.3.4", "login", 5, time.Minute)
		assert.True(t, st.Allowed)
		assert.Equal(t, 5, st.Remaining, "expired attempts must not count")
	})

	t.Run("should keep pairs independent", func(t *testing.T) {
		l, _ := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
		}
		assert.False(t, l.CheckLimit(ctx, "1.2.3.4", "login", 5, time.Minute).Allowed)
		assert.True(t, l.CheckLimit(ctx, "5.6.7.8", "login", 5, time.Minute).Allowed)
		assert.True(t, l.CheckLimit(ctx, "1.2.3.4", "register", 5, time.Minute).Allowed)
	})
}

func TestSlidingWindowLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.RecordAttempt(ctx, "1.2.3.4", "login"))
	}
	require.NoError(t, l.Reset(ctx, "1.2.3.4", "login"))

	st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, time.Minute)
	assert.True(t, st.Allowed)
	assert.Equal(t, 5, st.Remaining, "reset pair behaves as never attempted")

	// Resetting again is a no-op.
	assert.NoError(t, l.Reset(ctx, "1.2.3.4", "login"))
}

func TestSlidingWindowLimiter_Protect(t *testing.T) {
	ctx := context.Background()

	t.Run("should consume one attempt per allowed call", func(t *testing.T) {
		l, _ := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			st := l.Protect(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
			assert.True(t, st.Allowed, "call %d should pass", i+1)
		}

		st := l.Protect(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		assert.False(t, st.Allowed)
	})

	t.Run("should report retry delay near the window remainder", func(t *testing.T) {
		l, clock := newTestLimiter(t)

		// 5 failed logins within 10 seconds, window of 300.
		for i := 0; i < 5; i++ {
			l.Protect(ctx, "1.2.3.4", "login", 5, 300*time.Second)
			clock.Advance(2 * time.Second)
		}

		st := l.Protect(ctx, "1.2.3.4", "login", 5, 300*time.Second)
		require.False(t, st.Allowed)
		assert.InDelta(t, 290, st.RetryAfter.Seconds(), 2)
		assert.False(t, st.ResetAt.Before(clock.Now()))
	})

	t.Run("should not consume a slot when denied", func(t *testing.T) {
		l, _ := newTestLimiter(t)

		for i := 0; i < 5; i++ {
			l.Protect(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		}
		for i := 0; i < 3; i++ {
			l.Protect(ctx, "1.2.3.4", "login", 5, 5*time.Minute)
		}

		var rec attemptRecord
		found, err := l.records.Get(ctx, recordKey("1.2.3.4", "login"), &rec)
		require.NoError(t, err)
		require.True(t, found)
		assert.Len(t, rec.Attempts, 5, "denied calls must not append attempts")
	})
}

func TestSlidingWindowLimiter_FailOpen(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	l := NewSlidingWindowLimiter(failingStore{}, logger.NewNoopLogger(), WithClock(clock.Now))

	st := l.CheckLimit(ctx, "1.2.3.4", "login", 5, time.Minute)
	assert.True(t, st.Allowed, "storage failure must fail open")
	assert.Equal(t, 5, st.Remaining)

	st = l.Protect(ctx, "1.2.3.4", "login", 5, time.Minute)
	assert.True(t, st.Allowed)
}

func TestSlidingWindowLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t)

	require.NoError(t, l.RecordAttempt(ctx, "stale", "login"))

	clock.Advance(25 * time.Hour)
	require.NoError(t, l.RecordAttempt(ctx, "fresh", "login"))

	removed, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The fresh record survives.
	var rec attemptRecord
	found, err := l.records.Get(ctx, recordKey("fresh", "login"), &rec)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = l.records.Get(ctx, recordKey("stale", "login"), &rec)
	require.NoError(t, err)
	assert.False(t, found)
}

// failingStore errors on every operation, for fail-open tests.
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
