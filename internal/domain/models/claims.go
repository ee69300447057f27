// Package models holds the domain value types shared across layers.
package models

import (
	"time"

	"github.com/clusterintranet/authgate/pkg/constants"
)

// Claims is a token payload. JSON decoding yields float64 for numbers, so the
// accessors below normalize both int64 (freshly built) and float64 (decoded).
type Claims map[string]interface{}

// Subject returns the "sub" claim, empty if absent.
func (c Claims) Subject() string {
	s, _ := c[constants.ClaimSubject].(string)
	return s
}

// Role returns the "role" claim, empty if absent.
func (c Claims) Role() string {
	s, _ := c[constants.ClaimRole].(string)
	return s
}

// TokenID returns the "jti" claim, empty if absent.
func (c Claims) TokenID() string {
	s, _ := c[constants.ClaimTokenID].(string)
	return s
}

// ExpiresAt returns the "exp" claim as a time, zero time if absent.
func (c Claims) ExpiresAt() time.Time {
	if ts := c.numeric(constants.ClaimExpiresAt); ts != 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

// IssuedAt returns the "iat" claim as a time, zero time if absent.
func (c Claims) IssuedAt() time.Time {
	if ts := c.numeric(constants.ClaimIssuedAt); ts != 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

// IsRefresh reports whether the payload carries the refresh-token marker.
func (c Claims) IsRefresh() bool {
	s, _ := c[constants.ClaimTokenType].(string)
	return s == string(constants.TokenTypeRefresh)
}

// Permissions returns the "permissions" claim as a string list.
func (c Claims) Permissions() []string {
	switch v := c[constants.ClaimPermissions].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (c Claims) numeric(key string) int64 {
	switch v := c[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

// ValidationResult is the outcome of validating a bearer token. Expected
// failures are values here, never errors: the caller decides the HTTP status.
type ValidationResult struct {
	// Valid is true only when signature, expiry, and blacklist all pass.
	Valid bool

	// Claims holds the decoded payload. Populated on success and, for
	// diagnostics, on expiry; always nil after a signature failure so claims
	// from forged tokens never leak.
	Claims Claims

	// Reason is the machine-readable failure reason, empty when Valid.
	Reason constants.TokenReason
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
