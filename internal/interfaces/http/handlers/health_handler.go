package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// HealthHandler provides the liveness and readiness endpoints.
type HealthHandler struct {
	records store.RecordStore
	db      *gorm.DB
	log     logger.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when auditing
// and accounts are disabled.
func NewHealthHandler(records store.RecordStore, db *gorm.DB, log logger.Logger) *HealthHandler {
	return &HealthHandler{records: records, db: db, log: log}
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness probes the record store and the database.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()
	checks := make(map[string]string)
	httpStatus := http.StatusOK

	checks["store"] = "ok"
	var probe struct{}
	if _, err := h.records.Get(ctx, "health:probe", &probe); err != nil {
		checks["store"] = "error: " + err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	if h.db != nil {
		checks["database"] = "ok"
		if sqlDB, err := h.db.DB(); err != nil {
			checks["database"] = "error: " + err.Error()
			httpStatus = http.StatusServiceUnavailable
		} else if err := sqlDB.PingContext(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			httpStatus = http.StatusServiceUnavailable
		}
	}

	status := "ready"
	if httpStatus != http.StatusOK {
		status = "not ready"
		h.log.Warn(ctx, "readiness check failed", logger.Any("checks", checks))
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
