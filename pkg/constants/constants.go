// Package constants defines system-wide constants for the Authgate security core.
package constants

import "time"

// ================================================================================
// Token Constants
// ================================================================================

// TokenType distinguishes the two tiers of issued tokens.
type TokenType string

const (
	// TokenTypeAccess is a short-lived access token.
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh is a long-lived refresh token, marked by the "type" claim.
	TokenTypeRefresh TokenType = "refresh"
)

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens.
	AccessTokenDefaultTTL = 15 * time.Minute

	// RefreshTokenDefaultTTL is the default lifetime for refresh tokens.
	RefreshTokenDefaultTTL = 7 * 24 * time.Hour

	// BlacklistDefaultTTL is how long a revocation entry is kept when the
	// caller does not supply the token's own expiry.
	BlacklistDefaultTTL = 7 * 24 * time.Hour
)

// Claim names used in token payloads.
const (
	ClaimSubject     = "sub"
	ClaimRole        = "role"
	ClaimIssuedAt    = "iat"
	ClaimExpiresAt   = "exp"
	ClaimTokenID     = "jti"
	ClaimTokenType   = "type"
	ClaimPermissions = "permissions"
)

// RoleAdmin grants every permission in HasPermission checks.
const RoleAdmin = "admin"

// ================================================================================
// Validation Failure Reasons
// ================================================================================

// TokenReason is the machine-readable reason attached to a failed validation.
type TokenReason string

const (
	TokenReasonEmpty            TokenReason = "empty"
	TokenReasonMalformed        TokenReason = "malformed"
	TokenReasonInvalidPayload   TokenReason = "invalid payload"
	TokenReasonExpired          TokenReason = "expired"
	TokenReasonInvalidSignature TokenReason = "invalid signature"
	TokenReasonRevoked          TokenReason = "revoked"
)

// ================================================================================
// Rate Limiting Constants
// ================================================================================

// Well-known rate-limited actions. Limits for each action come from config.
const (
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionRefresh  = "refresh"
)

const (
	// RateLimitRetention is how long a rate-limit record may sit idle before
	// a cleanup sweep removes it.
	RateLimitRetention = 24 * time.Hour

	// CleanupInterval bounds how often amortized cleanup sweeps run, for both
	// the rate limiter and the token blacklist.
	CleanupInterval = 1 * time.Hour
)

// ================================================================================
// Record Store Constants
// ================================================================================

// StorageBackend selects the record store implementation at startup.
type StorageBackend string

const (
	StorageBackendFile   StorageBackend = "file"
	StorageBackendRedis  StorageBackend = "redis"
	StorageBackendMemory StorageBackend = "memory"
)

// Record key prefixes partition the shared store between components.
const (
	KeyPrefixRateLimit = "rl:"
	KeyPrefixBlacklist = "bl:"
	KeyPrefixMarker    = "sweep:"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in request contexts.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyClaims    ContextKey = "claims"
	ContextKeySubject   ContextKey = "subject"
)

// ================================================================================
// Audit Event Types
// ================================================================================

// AuditEventType categorizes persisted audit events.
type AuditEventType string

const (
	AuditEventLoginSuccess      AuditEventType = "login_success"
	AuditEventLoginFailure      AuditEventType = "login_failure"
	AuditEventRegister          AuditEventType = "register"
	AuditEventTokenIssued       AuditEventType = "token_issued"
	AuditEventTokenRevoked      AuditEventType = "token_revoked"
	AuditEventTokenRejected     AuditEventType = "token_rejected"
	AuditEventRateLimitExceeded AuditEventType = "rate_limit_exceeded"
)
