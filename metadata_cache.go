package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// cacheEntry is one persisted metadata record, carrying its fetch time so
// freshness can be checked after a restart.
type cacheEntry struct {
	Info      VideoInfo `json:"info"`
	FetchedAt time.Time `json:"cache_time"`
}

// metadataCache stores resolved metadata keyed by canonical media id. The
// disk copy is authoritative; Redis, when reachable, is a faster tier in
// front of it. Cache failures are never fatal: a broken entry just means a
// fresh resolver call.
type metadataCache struct {
	dir    string
	ttl    time.Duration
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func newMetadataCache(logger *slog.Logger, dir string, ttl time.Duration, redisAddr string) *metadataCache {
	c := &metadataCache{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, using disk cache only", "addr", redisAddr, "error", err)
		} else {
			logger.Info("redis metadata cache enabled", "addr", redisAddr)
			c.rdb = rdb
		}
	}
	return c
}

// validCacheID reports whether the id is safe to use as a cache filename.
// Media ids only carry this alphabet; anything else would let a crafted URL
// escape the cache directory.
func validCacheID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// Get returns cached metadata for the id if a fresh entry exists.
func (c *metadataCache) Get(ctx context.Context, id string) (*VideoInfo, bool) {
	if !validCacheID(id) {
		return nil, false
	}
	if entry, ok := c.getRedis(ctx, id); ok {
		if c.fresh(entry) {
			return &entry.Info, true
		}
	}
	entry, ok := c.getDisk(id)
	if !ok || !c.fresh(entry) {
		return nil, false
	}
	return &entry.Info, true
}

// Put stores metadata for the id on disk and writes through to Redis.
func (c *metadataCache) Put(ctx context.Context, id string, info *VideoInfo) {
	if !validCacheID(id) {
		return
	}
	entry := cacheEntry{Info: *info, FetchedAt: c.now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path(id), data, 0o644); err != nil {
		c.logger.Warn("metadata cache write failed", "id", id, "error", err)
	}
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, c.key(id), data, c.ttl).Err(); err != nil {
			c.logger.Warn("redis cache write failed", "id", id, "error", err)
		}
	}
}

func (c *metadataCache) fresh(entry *cacheEntry) bool {
	return c.now().Sub(entry.FetchedAt) < c.ttl
}

func (c *metadataCache) getRedis(ctx context.Context, id string) (*cacheEntry, bool) {
	if c.rdb == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (c *metadataCache) getDisk(id string) (*cacheEntry, bool) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (c *metadataCache) path(id string) string {
	return filepath.Join(c.dir, id+".json")
}

func (c *metadataCache) key(id string) string {
	return fmt.Sprintf("meta:%s", id)
}
