// Package service provides application-level services that orchestrate the
// domain services and repositories.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clusterintranet/authgate/internal/application/dto"
	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/internal/domain/models"
	domainService "github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/internal/infrastructure/persistence"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
	"github.com/clusterintranet/authgate/pkg/validation"
)

// AuthAppService orchestrates registration, login, and the token lifecycle.
type AuthAppService interface {
	// Register creates a new account.
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)

	// Login verifies credentials and issues a token pair. clientIP is the
	// rate-limit identifier; a successful login clears its login budget.
	Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.TokenPairResponse, error)

	// Refresh exchanges a valid refresh token for a new pair. The consumed
	// refresh token is revoked.
	Refresh(ctx context.Context, req *dto.RefreshRequest, clientIP string) (*dto.TokenPairResponse, error)

	// Logout revokes the access token and, when provided, the refresh token.
	Logout(ctx context.Context, accessToken, refreshToken, clientIP string) error

	// CurrentUser returns the account behind a validated subject claim.
	CurrentUser(ctx context.Context, subject string) (*dto.UserResponse, error)
}

type authAppServiceImpl struct {
	users     domainService.UserRepository
	tokens    domainService.TokenService
	blacklist domainService.TokenBlacklist
	limiter   domainService.RateLimitService
	audit     domainService.AuditService
	metrics   *monitoring.Metrics
	tokenCfg  *config.TokenConfig
	log       logger.Logger
}

// NewAuthAppService creates the authentication application service.
func NewAuthAppService(
	users domainService.UserRepository,
	tokens domainService.TokenService,
	blacklist domainService.TokenBlacklist,
	limiter domainService.RateLimitService,
	auditSvc domainService.AuditService,
	metrics *monitoring.Metrics,
	tokenCfg *config.TokenConfig,
	log logger.Logger,
) AuthAppService {
	return &authAppServiceImpl{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		limiter:   limiter,
		audit:     auditSvc,
		metrics:   metrics,
		tokenCfg:  tokenCfg,
		log:       log.WithComponent("auth_app_service"),
	}
}

func (s *authAppServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	failures := validation.Evaluate(
		validation.Field{Name: "email", Value: req.Email, Rules: []validation.Rule{
			validation.Required(), validation.Email(),
		}},
		validation.Field{Name: "password", Value: req.Password, Rules: []validation.Rule{
			validation.Required(), validation.StringLength(8, 128),
		}},
	)
	if len(failures) > 0 {
		return nil, errors.ErrInvalidRequest("validation failed").WithDetails(failures)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrServerError("failed to hash password").WithError(err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicateEmail) {
			return nil, errors.ErrConflict("email already registered")
		}
		return nil, errors.ErrServerError("failed to create user").WithError(err)
	}

	s.audit.Record(ctx, constants.AuditEventRegister, user.Email, "", "account created")
	s.log.Info(ctx, "user registered", logger.String("user_id", user.ID.String()))

	return userResponse(user), nil
}

func (s *authAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.TokenPairResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.ErrInvalidRequest("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			// Burn a hash comparison so unknown emails cost as much as
			// wrong passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			s.audit.Record(ctx, constants.AuditEventLoginFailure, req.Email, clientIP, "unknown account")
			return nil, errors.ErrUnauthorized("invalid credentials")
		}
		return nil, errors.ErrServerError("failed to load user").WithError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.audit.Record(ctx, constants.AuditEventLoginFailure, req.Email, clientIP, "wrong password")
		return nil, errors.ErrUnauthorized("invalid credentials")
	}

	// Successful login clears the attempt budget for this client.
	if err := s.limiter.Reset(ctx, clientIP, constants.ActionLogin); err != nil {
		s.log.Warn(ctx, "failed to reset login limiter", logger.Error(err))
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, constants.AuditEventLoginSuccess, user.Email, clientIP, "login")
	return pair, nil
}

func (s *authAppServiceImpl) Refresh(ctx context.Context, req *dto.RefreshRequest, clientIP string) (*dto.TokenPairResponse, error) {
	if req.RefreshToken == "" {
		return nil, errors.ErrInvalidRequest("refresh_token is required")
	}

	result := s.tokens.Validate(ctx, req.RefreshToken)
	if !result.Valid {
		s.audit.Record(ctx, constants.AuditEventTokenRejected, "", clientIP, string(result.Reason))
		s.log.Warn(ctx, "refresh token rejected", logger.String("reason", string(result.Reason)))
		return nil, errors.ErrUnauthorized("invalid credentials")
	}
	if !result.Claims.IsRefresh() {
		s.audit.Record(ctx, constants.AuditEventTokenRejected, result.Claims.Subject(), clientIP, "access token used as refresh token")
		return nil, errors.ErrUnauthorized("invalid credentials")
	}

	user, err := s.users.FindByID(ctx, result.Claims.Subject())
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			return nil, errors.ErrUnauthorized("invalid credentials")
		}
		return nil, errors.ErrServerError("failed to load user").WithError(err)
	}

	// Rotation: the consumed refresh token is revoked for the rest of its
	// lifetime.
	if err := s.blacklist.Add(ctx, req.RefreshToken, result.Claims.ExpiresAt()); err != nil {
		return nil, errors.ErrServerError("failed to revoke refresh token").WithError(err)
	}
	s.metrics.RecordTokenRevocation()

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, constants.AuditEventTokenIssued, user.Email, clientIP, "refresh")
	return pair, nil
}

func (s *authAppServiceImpl) Logout(ctx context.Context, accessToken, refreshToken, clientIP string) error {
	subject := ""
	if claims, err := s.tokens.DecodeUnverified(accessToken); err == nil {
		subject = claims.Subject()
	}

	if err := s.revokeForLifetime(ctx, accessToken); err != nil {
		return errors.ErrServerError("failed to revoke access token").WithError(err)
	}
	if refreshToken != "" {
		if err := s.revokeForLifetime(ctx, refreshToken); err != nil {
			return errors.ErrServerError("failed to revoke refresh token").WithError(err)
		}
	}

	s.audit.Record(ctx, constants.AuditEventTokenRevoked, subject, clientIP, "logout")
	return nil
}

func (s *authAppServiceImpl) CurrentUser(ctx context.Context, subject string) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			return nil, errors.ErrNotFound("user")
		}
		return nil, errors.ErrServerError("failed to load user").WithError(err)
	}
	return userResponse(user), nil
}

// issuePair mints an access/refresh token pair for the user. Each token gets
// its own jti so they can be revoked independently.
func (s *authAppServiceImpl) issuePair(ctx context.Context, user *models.User) (*dto.TokenPairResponse, error) {
	base := models.Claims{
		constants.ClaimSubject: user.ID.String(),
		constants.ClaimRole:    user.Role,
	}
	if perms := user.PermissionList(); len(perms) > 0 {
		base[constants.ClaimPermissions] = perms
	}

	accessClaims := cloneClaims(base)
	accessClaims[constants.ClaimTokenID] = uuid.New().String()
	access, err := s.tokens.Generate(accessClaims, s.accessTTL())
	if err != nil {
		return nil, errors.ErrServerError("failed to issue access token").WithError(err)
	}
	s.metrics.RecordTokenIssued(constants.TokenTypeAccess)

	refreshClaims := cloneClaims(base)
	refreshClaims[constants.ClaimTokenID] = uuid.New().String()
	refresh, err := s.tokens.GenerateRefreshToken(refreshClaims, s.refreshTTL())
	if err != nil {
		return nil, errors.ErrServerError("failed to issue refresh token").WithError(err)
	}
	s.metrics.RecordTokenIssued(constants.TokenTypeRefresh)

	return dto.NewTokenPairResponse(access, refresh, s.accessTTL()), nil
}

// revokeForLifetime blacklists a token until its own expiry. Undecodable
// tokens fall back to the default blacklist TTL.
func (s *authAppServiceImpl) revokeForLifetime(ctx context.Context, token string) error {
	var expiresAt time.Time
	if claims, err := s.tokens.DecodeUnverified(token); err == nil {
		expiresAt = claims.ExpiresAt()
	}
	if err := s.blacklist.Add(ctx, token, expiresAt); err != nil {
		return err
	}
	s.metrics.RecordTokenRevocation()
	return nil
}

func (s *authAppServiceImpl) accessTTL() time.Duration {
	if ttl := s.tokenCfg.AccessTTL(); ttl > 0 {
		return ttl
	}
	return constants.AccessTokenDefaultTTL
}

func (s *authAppServiceImpl) refreshTTL() time.Duration {
	if ttl := s.tokenCfg.RefreshTTL(); ttl > 0 {
		return ttl
	}
	return constants.RefreshTokenDefaultTTL
}

func cloneClaims(c models.Claims) models.Claims {
	out := make(models.Claims, len(c)+3)
	for k, v := range c {
		out[k] = v
	}
	return out
}

func userResponse(user *models.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.PermissionList(),
		CreatedAt:   user.CreatedAt.Unix(),
	}
}

// dummyHash is a bcrypt hash of a random string, used to equalize login
// timing for unknown accounts.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
