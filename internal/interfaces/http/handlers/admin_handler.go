package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clusterintranet/authgate/internal/application/dto"
	"github.com/clusterintranet/authgate/internal/domain/service"
)

// AdminHandler exposes operational endpoints for the revocation set and the
// rate limiter. Routes using it must sit behind the admin permission.
type AdminHandler struct {
	blacklist service.TokenBlacklist
	limiter   service.RateLimitService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(blacklist service.TokenBlacklist, limiter service.RateLimitService) *AdminHandler {
	return &AdminHandler{blacklist: blacklist, limiter: limiter}
}

// BlacklistStats returns a snapshot of the revocation set.
func (h *AdminHandler) BlacklistStats(c *gin.Context) {
	dto.SendSuccess(c, http.StatusOK, h.blacklist.Stats(c.Request.Context()))
}

// BlacklistCleanup forces an immediate sweep of expired revocations.
func (h *AdminHandler) BlacklistCleanup(c *gin.Context) {
	dto.SendSuccess(c, http.StatusOK, h.blacklist.Cleanup(c.Request.Context()))
}

// RateLimitCleanup forces an immediate sweep of stale rate-limit records.
func (h *AdminHandler) RateLimitCleanup(c *gin.Context) {
	removed, err := h.limiter.Cleanup(c.Request.Context())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"removed": removed})
}
