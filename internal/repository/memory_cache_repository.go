package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

// MemoryCacheRepository is an in-process cache used when Redis is disabled.
// Values are stored as JSON so callers see the same copy semantics as Redis.
// Entries share one TTL fixed at construction.
type MemoryCacheRepository struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryCacheRepository builds an LRU holding at most size entries for ttl.
func NewMemoryCacheRepository(size int, ttl time.Duration) *MemoryCacheRepository {
	if size <= 0 {
		size = 64
	}
	return &MemoryCacheRepository{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.cache.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value. The per-call ttl is ignored.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.cache.Add(key, payload)
	return nil
}

// DeleteByPattern removes entries whose key matches the glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for _, key := range r.cache.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match pattern %s: %w", pattern, err)
		}
		if matched {
			r.cache.Remove(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (r *MemoryCacheRepository) Len() int {
	return r.cache.Len()
}
