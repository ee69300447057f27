// Package handlers contains the Gin HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clusterintranet/authgate/internal/application/dto"
	"github.com/clusterintranet/authgate/internal/application/service"
	"github.com/clusterintranet/authgate/internal/interfaces/http/middleware"
	"github.com/clusterintranet/authgate/pkg/errors"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService service.AuthAppService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthAppService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles account creation.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid request body").WithError(err))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, user)
}

// Login handles credential login and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid request body").WithError(err))
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid request body").WithError(err))
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, pair)
}

// Logout revokes the caller's tokens. Requires a validated access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// The body is optional; absent means only the access token is revoked.
	_ = c.ShouldBindJSON(&req)

	accessToken := c.GetString(middleware.ContextToken)
	if err := h.authService.Logout(c.Request.Context(), accessToken, req.RefreshToken, c.ClientIP()); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	subject := c.GetString(middleware.ContextSubject)
	if subject == "" {
		dto.SendError(c, errors.ErrUnauthorized("authentication required"))
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), subject)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, user)
}
