package store

import (
	"context"
	"encoding/json"

	gocache "github.com/patrickmn/go-cache"

	"github.com/clusterintranet/authgate/pkg/errors"
)

// MemoryStore keeps records in process memory. Intended for development and
// tests; state does not survive a restart.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-memory record store.
func NewMemoryStore() *MemoryStore {
	// Records carry their own expiry semantics, so the cache never expires
	// entries on its own.
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.ErrInvalidRequest("record value is not JSON-serializable").WithError(err)
	}
	s.cache.Set(key, raw, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return false, nil
	}

	raw, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) ScanAll(ctx context.Context, fn func(key string, raw []byte) bool) error {
	for key, item := range s.cache.Items() {
		raw, ok := item.Object.([]byte)
		if !ok {
			continue
		}
		if !fn(key, raw) {
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
