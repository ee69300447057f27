// Package service defines the domain service contracts implemented by the
// infrastructure layer.
package service

import (
	"context"
	"time"

	"github.com/clusterintranet/authgate/internal/domain/models"
	"github.com/clusterintranet/authgate/pkg/constants"
)

// ================================================================================
// Rate Limiting
// ================================================================================

// RateLimitStatus is the outcome of a limit check.
type RateLimitStatus struct {
	// Allowed is false once the attempt count inside the window reaches the
	// maximum.
	Allowed bool

	// Remaining is how many attempts are left inside the current window.
	Remaining int

	// ResetAt is when the oldest in-window attempt falls out of the window.
	// Never before now.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait.
	RetryAfter time.Duration
}

// RateLimitService gates (identifier, action) pairs with a sliding window.
// Storage failures fail open: the limiter must never deny all traffic because
// its backing store is briefly unavailable.
type RateLimitService interface {
	// CheckLimit reports the current status without consuming an attempt.
	CheckLimit(ctx context.Context, identifier, action string, maxAttempts int, window time.Duration) RateLimitStatus

	// RecordAttempt appends one attempt at the current time. Call exactly
	// once per real attempt.
	RecordAttempt(ctx context.Context, identifier, action string) error

	// Reset forgets all attempts for the pair, e.g. after a successful login.
	Reset(ctx context.Context, identifier, action string) error

	// Protect combines CheckLimit and RecordAttempt: when allowed, the
	// attempt is consumed; when denied, the returned status carries the retry
	// delay for a 429 response.
	Protect(ctx context.Context, identifier, action string, maxAttempts int, window time.Duration) RateLimitStatus

	// Cleanup removes records idle past the retention period. Safe to run
	// concurrently with traffic.
	Cleanup(ctx context.Context) (removed int, err error)

	// MaybeCleanup runs Cleanup at most once per configured interval.
	MaybeCleanup(ctx context.Context)
}

// ================================================================================
// Token Blacklist
// ================================================================================

// BlacklistCleanupReport summarizes a blacklist sweep.
type BlacklistCleanupReport struct {
	TotalChecked   int `json:"total_checked"`
	ExpiredRemoved int `json:"expired_removed"`
	Errors         int `json:"errors"`
}

// BlacklistStats is a diagnostic snapshot of the revocation set.
type BlacklistStats struct {
	TotalTokens   int       `json:"total_tokens"`
	ActiveTokens  int       `json:"active_tokens"`
	ExpiredTokens int       `json:"expired_tokens"`
	LastCleanup   time.Time `json:"last_cleanup"`
}

// TokenBlacklist is the out-of-band revocation set. Raw tokens are never
// stored, only their hashes. Lookups fail open on storage errors.
type TokenBlacklist interface {
	// Add revokes a token until expiresAt. A zero expiresAt defaults to the
	// configured blacklist TTL. expiresAt should be at or past the token's
	// own expiry; the blacklist does not re-derive it.
	Add(ctx context.Context, token string, expiresAt time.Time) error

	// IsBlacklisted reports whether the token is currently revoked. Entries
	// past their expiry read as not blacklisted and are removed lazily.
	IsBlacklisted(ctx context.Context, token string) bool

	// Remove un-revokes a token. Mainly for tests and admin tooling.
	Remove(ctx context.Context, token string) error

	// Cleanup sweeps expired entries.
	Cleanup(ctx context.Context) BlacklistCleanupReport

	// MaybeCleanup runs Cleanup at most once per configured interval.
	MaybeCleanup(ctx context.Context)

	// Stats returns a diagnostic snapshot.
	Stats(ctx context.Context) BlacklistStats

	// Clear wipes every entry. Operational and test use only.
	Clear(ctx context.Context) error
}

// ================================================================================
// Token Codec
// ================================================================================

// TokenService encodes and validates signed, expiring bearer tokens.
type TokenService interface {
	// Generate issues a signed token carrying claims plus iat/exp.
	Generate(claims models.Claims, expiresIn time.Duration) (string, error)

	// GenerateRefreshToken issues a token marked with the refresh type claim.
	GenerateRefreshToken(claims models.Claims, expiresIn time.Duration) (string, error)

	// Validate checks structure, expiry, signature, and the blacklist, in
	// that order. Expected failures come back as a result, not an error.
	Validate(ctx context.Context, token string) models.ValidationResult

	// DecodeUnverified decodes the payload WITHOUT verifying the signature.
	// Debugging only; never use its output for authorization decisions.
	DecodeUnverified(token string) (models.Claims, error)

	// HasPermission reports whether the (already validated) token grants a
	// permission. Admin role grants everything.
	HasPermission(token string, permission string) bool

	// IsRefreshToken reports whether the token carries the refresh marker.
	IsRefreshToken(token string) bool
}

// ================================================================================
// Audit
// ================================================================================

// AuditService records security-relevant events.
type AuditService interface {
	Record(ctx context.Context, event constants.AuditEventType, subject, clientIP, detail string)
}

// ================================================================================
// Users
// ================================================================================

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}
