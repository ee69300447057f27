// Package crypto implements the bearer token codec: HMAC-SHA256 signed,
// expiring tokens in the header.payload.signature form, with validation
// consulting the revocation blacklist.
package crypto

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clusterintranet/authgate/internal/domain/models"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// tokenHeader is the fixed first segment.
type tokenHeader struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

var defaultHeader = tokenHeader{Typ: "JWT", Alg: "HS256"}

// TokenCodec implements service.TokenService. Encoding is stateless; Validate
// additionally consults the blacklist so a revoked token fails even while
// cryptographically sound and unexpired.
type TokenCodec struct {
	secret    []byte
	blacklist service.TokenBlacklist
	log       logger.Logger
	now       func() time.Time
}

var _ service.TokenService = (*TokenCodec)(nil)

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the codec's notion of now. Tests only.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec creates a codec signing with secret and consulting bl during
// validation.
func NewTokenCodec(secret string, bl service.TokenBlacklist, log logger.Logger, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.ErrInvalidRequest("token secret is required")
	}

	c := &TokenCodec{
		secret:    []byte(secret),
		blacklist: bl,
		log:       log.WithComponent("tokencodec"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate issues a signed token. The supplied claims are copied and extended
// with iat and exp; a jti is added when the caller did not set one.
func (c *TokenCodec) Generate(claims models.Claims, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = constants.AccessTokenDefaultTTL
	}

	now := c.now()
	payload := make(models.Claims, len(claims)+2)
	for k, v := range claims {
		payload[k] = v
	}
	payload[constants.ClaimIssuedAt] = now.Unix()
	payload[constants.ClaimExpiresAt] = now.Add(expiresIn).Unix()

	headerJSON, err := json.Marshal(defaultHeader)
	if err != nil {
		return "", errors.ErrServerError("cannot encode token header").WithError(err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", errors.ErrInvalidRequest("claims are not JSON-serializable").WithError(err)
	}

	signingInput := b64(headerJSON) + "." + b64(payloadJSON)
	return signingInput + "." + b64(c.sign(signingInput)), nil
}

// GenerateRefreshToken issues a token carrying the refresh marker claim.
// Refresh tokens default to a 7 day lifetime against 15 minutes for access
// tokens; the two tiers let access tokens stay short-lived.
func (c *TokenCodec) GenerateRefreshToken(claims models.Claims, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = constants.RefreshTokenDefaultTTL
	}

	marked := make(models.Claims, len(claims)+1)
	for k, v := range claims {
		marked[k] = v
	}
	marked[constants.ClaimTokenType] = string(constants.TokenTypeRefresh)

	return c.Generate(marked, expiresIn)
}

// Validate checks the token in a fixed order: structure, payload, expiry,
// signature, blacklist. The expired result still carries the claims for
// diagnostics; a signature failure never does, so forged payloads cannot
// leak through error paths.
func (c *TokenCodec) Validate(ctx context.Context, token string) models.ValidationResult {
	if token == "" {
		return invalid(constants.TokenReasonEmpty)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return invalid(constants.TokenReasonMalformed)
	}

	payloadJSON, err := unb64(parts[1])
	if err != nil {
		return invalid(constants.TokenReasonInvalidPayload)
	}
	var claims models.Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return invalid(constants.TokenReasonInvalidPayload)
	}

	if exp := claims.ExpiresAt(); exp.IsZero() || c.now().After(exp) {
		return models.ValidationResult{
			Valid:  false,
			Claims: claims,
			Reason: constants.TokenReasonExpired,
		}
	}

	signature, err := unb64(parts[2])
	if err != nil {
		return invalid(constants.TokenReasonInvalidSignature)
	}
	expected := c.sign(parts[0] + "." + parts[1])
	// Constant-time compare: response timing must not distinguish a nearly
	// right signature from a right one.
	if !hmac.Equal(signature, expected) {
		return invalid(constants.TokenReasonInvalidSignature)
	}

	if c.blacklist != nil && c.blacklist.IsBlacklisted(ctx, token) {
		return models.ValidationResult{
			Valid:  false,
			Claims: claims,
			Reason: constants.TokenReasonRevoked,
		}
	}

	return models.ValidationResult{Valid: true, Claims: claims}
}

// DecodeUnverified decodes the payload without any verification. Debugging
// only: the claims are untrusted and must never drive authorization.
func (c *TokenCodec) DecodeUnverified(token string) (models.Claims, error) {
	return decodePayload(token)
}

// HasPermission reports whether the token's claims grant a permission. The
// payload is decoded unverified; callers must have validated the token first.
// The admin role grants everything, otherwise the permissions claim list is
// consulted.
func (c *TokenCodec) HasPermission(token string, permission string) bool {
	claims, err := decodePayload(token)
	if err != nil {
		return false
	}

	if claims.Role() == constants.RoleAdmin {
		return true
	}
	for _, p := range claims.Permissions() {
		if p == permission {
			return true
		}
	}
	return false
}

// IsRefreshToken reports whether the token carries the refresh marker. The
// payload is decoded unverified; callers must have validated the token first.
func (c *TokenCodec) IsRefreshToken(token string) bool {
	claims, err := decodePayload(token)
	if err != nil {
		return false
	}
	return claims.IsRefresh()
}

func (c *TokenCodec) sign(input string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}

func decodePayload(token string) (models.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token must have 3 segments, got %d", len(parts))
	}

	payloadJSON, err := unb64(parts[1])
	if err != nil {
		return nil, fmt.Errorf("payload is not valid base64url: %w", err)
	}

	var claims models.Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return claims, nil
}

func invalid(reason constants.TokenReason) models.ValidationResult {
	return models.ValidationResult{Valid: false, Reason: reason}
}

// b64 and unb64 are unpadded base64url, the +/= to -_ mapping of the wire
// format.
func b64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func unb64(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
