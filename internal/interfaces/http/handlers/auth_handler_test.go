package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clusterintranet/authgate/internal/application/service"
	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/internal/infrastructure/audit"
	"github.com/clusterintranet/authgate/internal/infrastructure/blacklist"
	"github.com/clusterintranet/authgate/internal/infrastructure/crypto"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/internal/infrastructure/persistence"
	"github.com/clusterintranet/authgate/internal/infrastructure/ratelimit"
	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/internal/interfaces/http/handlers"
	"github.com/clusterintranet/authgate/internal/interfaces/http/router"
	"github.com/clusterintranet/authgate/pkg/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNoopLogger()

	cfg := &config.Config{
		Token: config.TokenConfig{Secret: testSecret, AccessTokenTTL: 900, RefreshTokenTTL: 604800},
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			Actions: map[string]config.ActionLimit{
				"login":    {MaxAttempts: 5, WindowSeconds: 300},
				"register": {MaxAttempts: 10, WindowSeconds: 3600},
				"refresh":  {MaxAttempts: 10, WindowSeconds: 60},
			},
		},
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	users, err := persistence.NewUserRepository(db)
	require.NoError(t, err)

	records := store.NewMemoryStore()
	bl := blacklist.New(records, log)
	limiter := ratelimit.NewSlidingWindowLimiter(records, log)
	codec, err := crypto.NewTokenCodec(cfg.Token.Secret, bl, log)
	require.NoError(t, err)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	authSvc := service.NewAuthAppService(users, codec, bl, limiter, audit.NoopAuditService{}, metrics, &cfg.Token, log)

	r := router.New(router.Deps{
		Config:        cfg,
		Logger:        log,
		Metrics:       metrics,
		Tokens:        codec,
		Blacklist:     bl,
		Limiter:       limiter,
		AuthHandler:   handlers.NewAuthHandler(authSvc),
		HealthHandler: handlers.NewHealthHandler(records, db, log),
		AdminHandler:  handlers.NewAdminHandler(bl, limiter),
	})
	return r.Engine()
}

func doJSON(engine *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.50:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func registerAndLogin(t *testing.T, engine *gin.Engine, email, password string) (access, refresh string) {
	t.Helper()
	w := doJSON(engine, http.MethodPost, "/api/v1/auth/register", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	access, _ = env.Data["access_token"].(string)
	refresh, _ = env.Data["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestAuthFlow(t *testing.T) {
	engine := newTestServer(t)

	t.Run("register login and fetch profile", func(t *testing.T) {
		access, _ := registerAndLogin(t, engine, "alice@example.com", "alices-password1")

		w := doJSON(engine, http.MethodGet, "/api/v1/auth/me", nil, access)
		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "alice@example.com", env.Data["email"])
	})

	t.Run("register validation failure returns field details", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/api/v1/auth/register", gin.H{"email": "nope", "password": "x"}, "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "email")
	})

	t.Run("wrong password is a generic 401", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "alice@example.com", "password": "wrong-password"}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid credentials", env.Error.Message)
	})

	t.Run("refresh rotates the pair and revokes the old refresh token", func(t *testing.T) {
		_, refresh := registerAndLogin(t, engine, "bob@example.com", "bobs-password-12")

		w := doJSON(engine, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token": refresh}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := decodeEnvelope(t, w)
		assert.NotEmpty(t, env.Data["access_token"])

		// Replaying the consumed refresh token fails.
		w = doJSON(engine, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token": refresh}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout revokes the access token", func(t *testing.T) {
		access, refresh := registerAndLogin(t, engine, "carol@example.com", "carols-password1")

		w := doJSON(engine, http.MethodPost, "/api/v1/auth/logout", gin.H{"refresh_token": refresh}, access)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doJSON(engine, http.MethodGet, "/api/v1/auth/me", nil, access)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("protected route without a token is 401", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, "/api/v1/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoginRateLimit(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(engine, http.MethodPost, "/api/v1/auth/register", gin.H{"email": "dave@example.com", "password": "daves-password-1"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	// Burn the login budget with bad passwords.
	for i := 0; i < 5; i++ {
		w = doJSON(engine, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "dave@example.com", "password": "wrong-password"}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "dave@example.com", "password": "daves-password-1"}, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body, "retry_after")
	assert.Contains(t, body, "reset_at")
}

func TestAdminRoutes(t *testing.T) {
	engine := newTestServer(t)

	t.Run("plain user is forbidden", func(t *testing.T) {
		access, _ := registerAndLogin(t, engine, "erin@example.com", "erins-password-1")

		w := doJSON(engine, http.MethodGet, "/api/v1/admin/blacklist/stats", nil, access)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(engine, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestUnknownRoute(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(engine, http.MethodGet, "/api/v1/none", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
