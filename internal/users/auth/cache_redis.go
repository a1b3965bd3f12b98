// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phamanh/verano/internal/platform/constants"
	"github.com/phamanh/verano/internal/platform/sec"
)

// RedisSnapshotCache implements [SnapshotCache] on top of Redis.
//
// # Why cache the guard's user lookup?
//
// The session guard resolves the acting account from storage on every
// authenticated request. Serving that lookup from a short-lived Redis entry
// keeps PostgreSQL off the hot path while the eager Delete on password
// change preserves the issued-at invalidation semantics.
type RedisSnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache creates a Redis-backed snapshot cache.
func NewSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

// key builds the namespaced Redis key for a user's snapshot.
func (cache *RedisSnapshotCache) key(userID string) string {
	return constants.RedisPrefixUserSnapshot + userID
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
func (cache *RedisSnapshotCache) Get(ctx context.Context, userID string) (*sec.UserSnapshot, error) {
	payload, err := cache.client.Get(ctx, cache.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("auth_snapshot_cache_get_failed: %w", err)
	}

	snapshot := &sec.UserSnapshot{}
	if err := json.Unmarshal(payload, snapshot); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, nil
	}

	return snapshot, nil
}

// Set stores the snapshot under the user's key for the given TTL.
func (cache *RedisSnapshotCache) Set(ctx context.Context, userID string, snapshot *sec.UserSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("auth_snapshot_cache_marshal_failed: %w", err)
	}

	if err := cache.client.Set(ctx, cache.key(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("auth_snapshot_cache_set_failed: %w", err)
	}

	return nil
}

// Delete evicts the snapshot so the guard re-reads PostgreSQL immediately.
func (cache *RedisSnapshotCache) Delete(ctx context.Context, userID string) error {
	if err := cache.client.Del(ctx, cache.key(userID)).Err(); err != nil {
		return fmt.Errorf("auth_snapshot_cache_delete_failed: %w", err)
	}
	return nil
}
