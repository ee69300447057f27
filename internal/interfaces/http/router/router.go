// Package router wires the HTTP surface: routes, middleware, and the server
// lifecycle.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/internal/interfaces/http/handlers"
	"github.com/clusterintranet/authgate/internal/interfaces/http/middleware"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// Deps carries everything the router needs.
type Deps struct {
	Config    *config.Config
	Logger    logger.Logger
	Metrics   *monitoring.Metrics
	Tokens    service.TokenService
	Blacklist service.TokenBlacklist
	Limiter   service.RateLimitService

	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	AdminHandler  *handlers.AdminHandler
}

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine *gin.Engine
	deps   Deps
	server *http.Server
}

// New builds the engine and registers all routes.
func New(deps Deps) *Router {
	engine := gin.New()
	r := &Router{engine: engine, deps: deps}
	r.setupRoutes()
	return r
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupRoutes() {
	cfg := r.deps.Config
	log := r.deps.Logger

	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.Observability(r.deps.Metrics, log))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.deps.HealthHandler.Liveness)
	r.engine.GET("/health/ready", r.deps.HealthHandler.Readiness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	rateLimited := func(action string) gin.HandlerFunc {
		return middleware.RateLimit(action, r.deps.Limiter, &cfg.RateLimit, r.deps.Metrics, log)
	}
	authenticated := middleware.RequireAuth(r.deps.Tokens, r.deps.Blacklist, r.deps.Metrics, log)

	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", rateLimited(constants.ActionRegister), r.deps.AuthHandler.Register)
			auth.POST("/login", rateLimited(constants.ActionLogin), r.deps.AuthHandler.Login)
			auth.POST("/refresh", rateLimited(constants.ActionRefresh), r.deps.AuthHandler.Refresh)
			auth.POST("/logout", authenticated, r.deps.AuthHandler.Logout)
			auth.GET("/me", authenticated, r.deps.AuthHandler.Me)
		}

		admin := v1.Group("/admin", authenticated,
			middleware.RequirePermission("admin.manage", r.deps.Tokens))
		{
			admin.GET("/blacklist/stats", r.deps.AdminHandler.BlacklistStats)
			admin.POST("/blacklist/cleanup", r.deps.AdminHandler.BlacklistCleanup)
			admin.POST("/ratelimit/cleanup", r.deps.AdminHandler.RateLimitCleanup)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start runs the HTTP server until it is shut down.
func (r *Router) Start() error {
	cfg := r.deps.Config.Server
	r.server = &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r.engine,
		ReadTimeout:    time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.deps.Logger.Info(context.Background(), "starting HTTP server", logger.String("addr", cfg.Addr()))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.deps.Logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}
