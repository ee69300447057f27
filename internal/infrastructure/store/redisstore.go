package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

const defaultRedisPrefix = "authgate:rec:"

// RedisStore keeps records as JSON strings in Redis. Used when several
// instances must share rate-limit and revocation state.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

// NewRedisStore creates a Redis-backed record store.
func NewRedisStore(client *redis.Client, prefix string, log logger.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    log.WithComponent("redisstore"),
	}
}

func (s *RedisStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.ErrInvalidRequest("record value is not JSON-serializable").WithError(err)
	}

	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		s.log.Error(ctx, "record write failed", err, logger.String("key", key))
		return errors.ErrServerError("record store write failed").WithError(err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		s.log.Error(ctx, "record read failed", err, logger.String("key", key))
		return false, errors.ErrServerError("record store read failed").WithError(err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn(ctx, "corrupt record treated as absent", logger.String("key", key), logger.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && err != redis.Nil {
		s.log.Error(ctx, "record delete failed", err, logger.String("key", key))
		return errors.ErrServerError("record store delete failed").WithError(err)
	}
	return nil
}

func (s *RedisStore) ScanAll(ctx context.Context, fn func(key string, raw []byte) bool) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()

		raw, err := s.client.Get(ctx, fullKey).Bytes()
		if err != nil {
			// Key expired or was deleted mid-scan.
			continue
		}

		if !fn(strings.TrimPrefix(fullKey, s.prefix), raw) {
			return nil
		}
	}

	if err := iter.Err(); err != nil {
		return errors.ErrServerError("record store scan failed").WithError(err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
