// Package middleware holds the Gin middleware for authentication, rate
// limiting, and request observability.
package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// Observability assigns each request an ID, records its latency, and writes
// an access log line after the handler finishes.
func Observability(metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		c.Next()

		// Use the route template, not the raw URL, to keep label
		// cardinality low.
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}
		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start)

		metrics.RecordRequest(c.Request.Method, path, status, duration)
		log.Info(ctx, "request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("status", status),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration))
	}
}
