// Package blacklist implements the out-of-band token revocation set.
// Signature and expiry checks alone cannot retire a still-valid token on
// logout or credential change; the blacklist is the mechanism that can, kept
// deliberately separate from the token codec so either can be swapped alone.
package blacklist

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

// entry is the persisted revocation record. Only the token hash ever touches
// the store; the raw token is never written anywhere.
type entry struct {
	AddedAt   int64 `json:"added_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// Option configures a Blacklist.
type Option func(*Blacklist)

// WithClock overrides the blacklist's notion of now. Tests only.
func WithClock(now func() time.Time) Option {
	return func(b *Blacklist) {
		b.now = now
	}
}

// WithDefaultTTL overrides the entry lifetime used when Add receives a zero
// expiry.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(b *Blacklist) {
		b.defaultTTL = ttl
	}
}

// WithCleanupInterval overrides how often amortized sweeps may run.
func WithCleanupInterval(interval time.Duration) Option {
	return func(b *Blacklist) {
		b.sweeper = store.NewSweeper(b.records, "blacklist", interval)
	}
}

// Blacklist implements service.TokenBlacklist over a RecordStore. Lookups
// fail open: a storage error must never lock out every user.
type Blacklist struct {
	records    store.RecordStore
	log        logger.Logger
	now        func() time.Time
	defaultTTL time.Duration
	sweeper    *store.Sweeper
}

var _ service.TokenBlacklist = (*Blacklist)(nil)

// New creates a blacklist over the given record store.
func New(records store.RecordStore, log logger.Logger, opts ...Option) *Blacklist {
	b := &Blacklist{
		records:    records,
		log:        log.WithComponent("blacklist"),
		now:        time.Now,
		defaultTTL: constants.BlacklistDefaultTTL,
		sweeper:    store.NewSweeper(records, "blacklist", constants.CleanupInterval),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add revokes the token until expiresAt. The caller supplies the token's own
// expiry (or later); the blacklist does not re-derive it from the payload.
func (b *Blacklist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	now := b.now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(b.defaultTTL)
	}

	return b.records.Put(ctx, tokenKey(token), entry{
		AddedAt:   now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
}

// IsBlacklisted reports whether the token is currently revoked. An entry past
// its expiry reads as absent and is deleted on the spot, so the common lookup
// path keeps the set tidy between sweeps.
func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) bool {
	key := tokenKey(token)

	var e entry
	found, err := b.records.Get(ctx, key, &e)
	if err != nil {
		b.log.Warn(ctx, "blacklist lookup failed open", logger.Error(err))
		return false
	}
	if !found {
		return false
	}

	if b.now().Unix() > e.ExpiresAt {
		// Lazy expiry. A concurrent sweep may have beaten us; Delete is
		// idempotent either way.
		if err := b.records.Delete(ctx, key); err != nil {
			b.log.Warn(ctx, "stale blacklist entry not removed", logger.Error(err))
		}
		return false
	}

	return true
}

// Remove un-revokes the token. Idempotent.
func (b *Blacklist) Remove(ctx context.Context, token string) error {
	return b.records.Delete(ctx, tokenKey(token))
}

// Cleanup sweeps every entry and deletes those past expiry.
func (b *Blacklist) Cleanup(ctx context.Context) service.BlacklistCleanupReport {
	now := b.now().Unix()
	report := service.BlacklistCleanupReport{}

	var expired []string
	err := b.records.ScanAll(ctx, func(key string, raw []byte) bool {
		if !strings.HasPrefix(key, constants.KeyPrefixBlacklist) {
			return true
		}
		report.TotalChecked++

		var e entry
		if json.Unmarshal(raw, &e) != nil {
			report.Errors++
			return true
		}
		if now > e.ExpiresAt {
			expired = append(expired, key)
		}
		return true
	})
	if err != nil {
		report.Errors++
		b.log.Warn(ctx, "blacklist sweep scan failed", logger.Error(err))
		return report
	}

	for _, key := range expired {
		if err := b.records.Delete(ctx, key); err != nil {
			report.Errors++
			continue
		}
		report.ExpiredRemoved++
	}

	if report.ExpiredRemoved > 0 {
		b.log.Info(ctx, "blacklist entries swept",
			logger.Int("checked", report.TotalChecked),
			logger.Int("removed", report.ExpiredRemoved),
		)
	}
	return report
}

// MaybeCleanup triggers Cleanup when the shared sweep marker says one is due.
func (b *Blacklist) MaybeCleanup(ctx context.Context) {
	b.sweeper.MaybeRun(ctx, func(ctx context.Context) {
		b.Cleanup(ctx)
	})
}

// Stats returns a diagnostic snapshot of the revocation set.
func (b *Blacklist) Stats(ctx context.Context) service.BlacklistStats {
	now := b.now().Unix()
	stats := service.BlacklistStats{
		LastCleanup: b.sweeper.LastRun(ctx),
	}

	_ = b.records.ScanAll(ctx, func(key string, raw []byte) bool {
		if !strings.HasPrefix(key, constants.KeyPrefixBlacklist) {
			return true
		}
		stats.TotalTokens++

		var e entry
		if json.Unmarshal(raw, &e) != nil {
			return true
		}
		if now > e.ExpiresAt {
			stats.ExpiredTokens++
		} else {
			stats.ActiveTokens++
		}
		return true
	})

	return stats
}

// Clear wipes every blacklist entry.
func (b *Blacklist) Clear(ctx context.Context) error {
	var keys []string
	err := b.records.ScanAll(ctx, func(key string, raw []byte) bool {
		if strings.HasPrefix(key, constants.KeyPrefixBlacklist) {
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := b.records.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// tokenKey hashes the raw token; hashes are one-way so a leaked store never
// yields usable credentials.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return constants.KeyPrefixBlacklist + hex.EncodeToString(sum[:])
}
