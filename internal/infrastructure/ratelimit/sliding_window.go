// Package ratelimit provides sliding-window rate limiting over the shared
// record store. Counting by timestamp list avoids the boundary bursts of
// fixed buckets at the cost of some disk growth between cleanup sweeps.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// attemptRecord is the persisted timestamp list for one (identifier, action)
// pair. Timestamps are seconds since epoch, append-only between cleanups.
type attemptRecord struct {
	Attempts []int64 `json:"attempts"`
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock overrides the limiter's notion of now. Tests only.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		l.now = now
	}
}

// WithRetention overrides how long an idle record survives before a sweep
// removes it.
func WithRetention(retention time.Duration) Option {
	return func(l *SlidingWindowLimiter) {
		l.retention = retention
	}
}

// WithCleanupInterval overrides how often amortized sweeps may run.
func WithCleanupInterval(interval time.Duration) Option {
	return func(l *SlidingWindowLimiter) {
		l.sweepEvery = interval
		l.sweeper = store.NewSweeper(l.records, "ratelimit", interval)
	}
}

// SlidingWindowLimiter implements service.RateLimitService over a RecordStore.
//
// Concurrent RecordAttempt calls for the same key may race (read-modify-write
// without a transaction); under heavy load the effective limit can be
// exceeded by a small margin. The design favors availability over exact
// counting, and every storage failure fails open.
type SlidingWindowLimiter struct {
	records    store.RecordStore
	log        logger.Logger
	now        func() time.Time
	retention  time.Duration
	sweepEvery time.Duration
	sweeper    *store.Sweeper
}

var _ service.RateLimitService = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates a limiter over the given record store.
func NewSlidingWindowLimiter(records store.RecordStore, log logger.Logger, opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		records:    records,
		log:        log.WithComponent("ratelimit"),
		now:        time.Now,
		retention:  constants.RateLimitRetention,
		sweepEvery: constants.CleanupInterval,
	}
	l.sweeper = store.NewSweeper(records, "ratelimit", l.sweepEvery)

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit reports the pair's status without consuming an attempt, so
// status displays can inspect limits without burning a slot.
func (l *SlidingWindowLimiter) CheckLimit(ctx context.Context, identifier, action string, maxAttempts int, window time.Duration) service.RateLimitStatus {
	now := l.now()

	var rec attemptRecord
	found, err := l.records.Get(ctx, recordKey(identifier, action), &rec)
	if err != nil {
		// Fail open: a broken store must not turn the limiter into its own
		// denial of service.
		l.log.Warn(ctx, "limit check failed open",
			logger.String("action", action), logger.Error(err))
		return openStatus(now, maxAttempts, window)
	}
	if !found {
		return openStatus(now, maxAttempts, window)
	}

	valid := inWindow(rec.Attempts, now, window)
	remaining := maxAttempts - len(valid)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if len(valid) > 0 {
		resetAt = time.Unix(valid[0], 0).Add(window)
		if resetAt.Before(now) {
			resetAt = now
		}
	}

	status := service.RateLimitStatus{
		Allowed:   len(valid) < maxAttempts,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !status.Allowed {
		status.RetryAfter = resetAt.Sub(now)
	}
	return status
}

// RecordAttempt appends now to the pair's timestamp list. Independent of
// CheckLimit so the caller controls exactly when a slot is consumed.
func (l *SlidingWindowLimiter) RecordAttempt(ctx context.Context, identifier, action string) error {
	key := recordKey(identifier, action)

	var rec attemptRecord
	if _, err := l.records.Get(ctx, key, &rec); err != nil {
		l.log.Warn(ctx, "attempt record read failed", logger.String("action", action), logger.Error(err))
		return err
	}

	rec.Attempts = append(rec.Attempts, l.now().Unix())

	if err := l.records.Put(ctx, key, rec); err != nil {
		l.log.Warn(ctx, "attempt record write failed", logger.String("action", action), logger.Error(err))
		return err
	}
	return nil
}

// Reset deletes the pair's record outright, e.g. to clear failed-attempt
// history after a successful login.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, identifier, action string) error {
	return l.records.Delete(ctx, recordKey(identifier, action))
}

// Protect gates the hot path: denied requests get a status carrying the retry
// delay, allowed requests consume one attempt. A failed RecordAttempt still
// allows the request (fail open).
func (l *SlidingWindowLimiter) Protect(ctx context.Context, identifier, action string, maxAttempts int, window time.Duration) service.RateLimitStatus {
	status := l.CheckLimit(ctx, identifier, action, maxAttempts, window)
	if !status.Allowed {
		return status
	}

	if err := l.RecordAttempt(ctx, identifier, action); err == nil {
		if status.Remaining > 0 {
			status.Remaining--
		}
	}
	return status
}

// Cleanup removes every record whose newest attempt is older than the
// retention period. Concurrent deletes are harmless; Delete is idempotent.
func (l *SlidingWindowLimiter) Cleanup(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.retention).Unix()
	removed := 0

	var stale []string
	err := l.records.ScanAll(ctx, func(key string, raw []byte) bool {
		if !strings.HasPrefix(key, constants.KeyPrefixRateLimit) {
			return true
		}

		var rec attemptRecord
		if !decodeRecord(raw, &rec) {
			// Corrupt record: remove it rather than let it rot.
			stale = append(stale, key)
			return true
		}

		newest := int64(0)
		for _, ts := range rec.Attempts {
			if ts > newest {
				newest = ts
			}
		}
		if newest < cutoff {
			stale = append(stale, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		if err := l.records.Delete(ctx, key); err == nil {
			removed++
		}
	}

	if removed > 0 {
		l.log.Info(ctx, "rate limit records swept", logger.Int("removed", removed))
	}
	return removed, nil
}

// MaybeCleanup triggers Cleanup when the shared sweep marker says one is due.
func (l *SlidingWindowLimiter) MaybeCleanup(ctx context.Context) {
	l.sweeper.MaybeRun(ctx, func(ctx context.Context) {
		if _, err := l.Cleanup(ctx); err != nil {
			l.log.Warn(ctx, "rate limit sweep failed", logger.Error(err))
		}
	})
}

// recordKey hashes the pair so arbitrary identifiers (IPs, emails) make safe
// store keys.
func recordKey(identifier, action string) string {
	sum := sha256.Sum256([]byte(identifier + "|" + action))
	return constants.KeyPrefixRateLimit + hex.EncodeToString(sum[:])
}

// inWindow returns the timestamps within window of now, oldest first.
func inWindow(attempts []int64, now time.Time, window time.Duration) []int64 {
	floor := now.Add(-window).Unix()
	valid := make([]int64, 0, len(attempts))
	for _, ts := range attempts {
		if ts > floor {
			valid = append(valid, ts)
		}
	}
	return valid
}

func decodeRecord(raw []byte, out interface{}) bool {
	return json.Unmarshal(raw, out) == nil
}

func openStatus(now time.Time, maxAttempts int, window time.Duration) service.RateLimitStatus {
	return service.RateLimitStatus{
		Allowed:   true,
		Remaining: maxAttempts,
		ResetAt:   now,
	}
}
