// Package store provides the durable key-value record store shared by the
// rate limiter and the token blacklist. Records are small JSON blobs keyed by
// string; the backend is selected once at startup.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/clusterintranet/authgate/internal/config"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// RecordStore persists small JSON-serializable records under a string key.
//
// Implementations degrade gracefully: a corrupt record reads as absent, and a
// Delete of a missing key is a no-op. Callers are expected to fail open when
// an operation returns an error.
type RecordStore interface {
	// Put serializes value to JSON and writes it under key, atomically with
	// respect to concurrent readers. Overwrites silently.
	Put(ctx context.Context, key string, value interface{}) error

	// Get reads the record under key into out. Returns false if the record
	// is missing or unreadable; a corrupt record is treated as absent.
	Get(ctx context.Context, key string, out interface{}) (bool, error)

	// Delete removes the record. Idempotent: deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// ScanAll visits every record as a snapshot at call time. The walk stops
	// when fn returns false. Raw holds the undecoded JSON value.
	ScanAll(ctx context.Context, fn func(key string, raw []byte) bool) error

	// Close releases backend resources.
	Close() error
}

// Open selects and initializes the record store backend from config. The
// choice is made exactly once here; no other code inspects the backend kind.
func Open(cfg *config.StorageConfig, log logger.Logger) (RecordStore, error) {
	switch constants.StorageBackend(cfg.Backend) {
	case constants.StorageBackendFile, "":
		return NewFileStore(cfg.Path, log)

	case constants.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, errors.ErrServerError("redis record store unreachable").WithError(err)
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix, log), nil

	case constants.StorageBackendMemory:
		return NewMemoryStore(), nil

	default:
		return nil, errors.ErrInvalidRequest(fmt.Sprintf("unknown storage backend %q", cfg.Backend))
	}
}
