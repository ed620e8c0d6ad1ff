package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

const scanBatch = 100

// CacheRepository stores JSON snapshots of confirmed marketplace entities in
// Redis. Keys are namespaced so several gateways can share one instance.
type CacheRepository struct {
	client    redis.Cmdable
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a cache repository. An empty namespace
// leaves keys untouched.
func NewCacheRepository(client redis.Cmdable, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, namespace: strings.TrimSuffix(namespace, ":"), logger: logger}
}

func (r *CacheRepository) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Get unmarshals the snapshot stored under key into dest. A missing key
// yields ErrCacheMiss; a corrupt snapshot is evicted and reported as a miss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	full := r.key(key)
	raw, err := r.client.Get(ctx, full).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", full, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("evicting unreadable snapshot", zap.String("key", full), zap.Error(err))
		if delErr := r.client.Del(ctx, full).Err(); delErr != nil {
			r.logger.Warn("evict failed", zap.String("key", full), zap.Error(delErr))
		}
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	full := r.key(key)
	if err := r.client.Set(ctx, full, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", full, err)
	}
	return nil
}

// Delete removes the given keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Unlink(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis unlink %s: %w", strings.Join(full, ","), err)
	}
	return nil
}

// DeleteByPattern removes every snapshot matching pattern within the
// namespace, unlinking in batches as the scan proceeds.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	full := r.key(pattern)
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink pattern %s: %w", full, err)
		}
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, full, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", full, err)
	}
	return flush()
}
