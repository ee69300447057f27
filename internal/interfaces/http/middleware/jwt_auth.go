package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clusterintranet/authgate/internal/application/dto"
	"github.com/clusterintranet/authgate/internal/domain/models"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// Gin context keys set by RequireAuth.
const (
	ContextClaims  = "claims"
	ContextSubject = "subject"
	ContextToken   = "token"
)

// extractBearer extracts the token from an Authorization header.
func extractBearer(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth protects routes behind bearer token validation. Clients always
// get the same generic 401; the concrete rejection reason only goes to the
// logs and metrics. Refresh tokens are not accepted here.
func RequireAuth(tokens service.TokenService, blacklist service.TokenBlacklist, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		blacklist.MaybeCleanup(ctx)

		token := extractBearer(c.GetHeader("Authorization"))
		result := tokens.Validate(ctx, token)
		if !result.Valid {
			metrics.RecordTokenValidation(string(result.Reason))
			log.Warn(ctx, "token rejected",
				logger.String("reason", string(result.Reason)),
				logger.String("client_ip", c.ClientIP()))
			abortUnauthorized(c)
			return
		}

		if result.Claims.IsRefresh() {
			metrics.RecordTokenValidation("refresh_on_access_route")
			log.Warn(ctx, "refresh token presented on protected route",
				logger.String("client_ip", c.ClientIP()))
			abortUnauthorized(c)
			return
		}

		metrics.RecordTokenValidation("valid")
		c.Set(ContextClaims, result.Claims)
		c.Set(ContextSubject, result.Claims.Subject())
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequirePermission allows only callers whose validated token grants the
// permission. Must run after RequireAuth.
func RequirePermission(permission string, tokens service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(ContextToken)
		if token == "" || !tokens.HasPermission(token, permission) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.ErrorResponse(errors.ErrForbidden("insufficient permissions")))
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the validated claims set by RequireAuth.
func ClaimsFromContext(c *gin.Context) (models.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(models.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.ErrorResponse(errors.ErrUnauthorized("authentication required")))
}
