package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appservice "github.com/clusterintranet/authgate/internal/application/service"
	"github.com/clusterintranet/authgate/internal/config"
	domainservice "github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/audit"
	"github.com/clusterintranet/authgate/internal/infrastructure/blacklist"
	"github.com/clusterintranet/authgate/internal/infrastructure/crypto"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/internal/infrastructure/persistence"
	"github.com/clusterintranet/authgate/internal/infrastructure/ratelimit"
	"github.com/clusterintranet/authgate/internal/infrastructure/store"
	"github.com/clusterintranet/authgate/internal/interfaces/http/handlers"
	"github.com/clusterintranet/authgate/internal/interfaces/http/router"
)

func main() {
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	ctx := context.Background()

	records, err := store.Open(&cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to open record store", err)
	}
	defer records.Close()

	db, err := gorm.Open(sqlite.Open(cfg.Audit.DBPath), &gorm.Config{})
	if err != nil {
		appLogger.Fatal(ctx, "failed to open database", err)
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	bl := blacklist.New(records, appLogger,
		blacklist.WithDefaultTTL(time.Duration(cfg.Token.BlacklistTTL)*time.Second))
	limiter := ratelimit.NewSlidingWindowLimiter(records, appLogger,
		ratelimit.WithRetention(time.Duration(cfg.RateLimit.RetentionHours)*time.Hour),
		ratelimit.WithCleanupInterval(time.Duration(cfg.RateLimit.CleanupInterval)*time.Second))
	codec, err := crypto.NewTokenCodec(cfg.Token.Secret, bl, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to create token codec", err)
	}

	users, err := persistence.NewUserRepository(db)
	if err != nil {
		appLogger.Fatal(ctx, "failed to set up user repository", err)
	}

	var auditSvc domainservice.AuditService = audit.NoopAuditService{}
	if cfg.Audit.Enabled {
		auditSvc, err = audit.NewGormAuditService(db, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "failed to set up audit service", err)
		}
	}

	authSvc := appservice.NewAuthAppService(users, codec, bl, limiter, auditSvc, metrics, &cfg.Token, appLogger)

	r := router.New(router.Deps{
		Config:        cfg,
		Logger:        appLogger,
		Metrics:       metrics,
		Tokens:        codec,
		Blacklist:     bl,
		Limiter:       limiter,
		AuthHandler:   handlers.NewAuthHandler(authSvc),
		HealthHandler: handlers.NewHealthHandler(records, db, appLogger),
		AdminHandler:  handlers.NewAdminHandler(bl, limiter),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "server forced to shut down", err)
		}
	}()

	if err := r.Start(); err != nil {
		appLogger.Fatal(ctx, "HTTP server failed", err)
	}
	appLogger.Info(ctx, "server stopped")
}
