package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clusterintranet/authgate/internal/application/dto"
	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// RateLimit gates an action by client IP with the configured sliding-window
// budget. An allowed request consumes one attempt; a denied request does not.
// Each pass also gives the limiter a chance to run its amortized cleanup.
func RateLimit(action string, limiter service.RateLimitService, cfg *config.RateLimitConfig, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		limit, ok := cfg.LimitFor(action)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		limiter.MaybeCleanup(ctx)

		status := limiter.Protect(ctx, c.ClientIP(), action, limit.MaxAttempts, limit.Window())
		metrics.RecordRateLimitCheck(action, status.Allowed)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit.MaxAttempts))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", status.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", status.ResetAt.Unix()))

		if !status.Allowed {
			log.Warn(ctx, "rate limit exceeded",
				logger.String("action", action),
				logger.String("client_ip", c.ClientIP()),
				logger.Duration("retry_after", status.RetryAfter))
			c.Header("Retry-After", fmt.Sprintf("%d", int64(status.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewRateLimitResponse(status.RetryAfter, status.ResetAt))
			return
		}

		c.Next()
	}
}
