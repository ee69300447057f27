// Package cli implements the authgate-admin command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/internal/infrastructure/blacklist"
	"github.com/clusterintranet/authgate/internal/infrastructure/crypto"
	"github.com/clusterintranet/authgate/internal/infrastructure/monitoring"
	"github.com/clusterintranet/authgate/internal/infrastructure/ratelimit"
	"github.com/clusterintranet/authgate/internal/infrastructure/store"
)

var rootCmd = &cobra.Command{
	Use:   "authgate-admin",
	Short: "Admin CLI for the Authgate service",
	Long: `authgate-admin performs operational tasks against the Authgate data
directory: inspecting and sweeping the token blacklist, resetting rate-limit
budgets, and decoding tokens for debugging.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// adminEnv bundles the services the leaf commands operate on.
type adminEnv struct {
	records   store.RecordStore
	blacklist service.TokenBlacklist
	limiter   service.RateLimitService
	tokens    service.TokenService
	close     func()
}

// newAdminEnv opens the configured record store directly. The CLI works on
// the same data the server does, so run sweeps against a live file backend
// only; they are safe but count against the shared budget of the store.
func newAdminEnv() (*adminEnv, error) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn"})
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	records, err := store.Open(&cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	bl := blacklist.New(records, log,
		blacklist.WithDefaultTTL(time.Duration(cfg.Token.BlacklistTTL)*time.Second))
	limiter := ratelimit.NewSlidingWindowLimiter(records, log,
		ratelimit.WithRetention(time.Duration(cfg.RateLimit.RetentionHours)*time.Hour))
	codec, err := crypto.NewTokenCodec(cfg.Token.Secret, bl, log)
	if err != nil {
		records.Close()
		return nil, fmt.Errorf("create token codec: %w", err)
	}

	return &adminEnv{
		records:   records,
		blacklist: bl,
		limiter:   limiter,
		tokens:    codec,
		close:     func() { records.Close() },
	}, nil
}
