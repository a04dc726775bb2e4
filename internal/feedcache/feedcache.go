/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package feedcache provides a Redis-backed cache for resolved channel feeds.
// Cycling back to a channel source should not pay the feed lookup again.
package feedcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds how stale a cached feed may be served.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "muninn:cache:feed:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Cache provides Redis-backed caching with graceful fallback. A missing
// or failing Redis never fails the caller; lookups just miss.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache. When no Redis address is configured, or the ping
// fails, the cache runs disabled.
func New(cfg Config, logger zerolog.Logger) *Cache {
	log := logger.With().Str("component", "feedcache").Logger()

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if cfg.RedisAddr == "" {
		return &Cache{logger: log, ttl: ttl, disabled: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, feed caching disabled")
		return &Cache{logger: log, ttl: ttl, disabled: true}
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("feed cache initialized")
	return &Cache{client: client, logger: log, ttl: ttl}
}

// Get unmarshals the cached value for a channel into dest.
// Returns false on miss, disablement, or error.
func (c *Cache) Get(ctx context.Context, channelID string, dest any) bool {
	if c.isDisabled() {
		return false
	}

	data, err := c.client.Get(ctx, keyPrefix+channelID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("channel", channelID).Msg("cache get failed")
			c.disable()
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("channel", channelID).Msg("cache entry corrupt")
		return false
	}
	return true
}

// Set stores the resolved feed for a channel with the configured TTL.
func (c *Cache) Set(ctx context.Context, channelID string, value any) {
	if c.isDisabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug().Err(err).Str("channel", channelID).Msg("cache marshal failed")
		return
	}

	if err := c.client.Set(ctx, keyPrefix+channelID, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("channel", channelID).Msg("cache set failed")
		c.disable()
	}
}

// Invalidate drops the cached feed for a channel.
func (c *Cache) Invalidate(ctx context.Context, channelID string) {
	if c.isDisabled() {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+channelID).Err(); err != nil {
		c.logger.Debug().Err(err).Str("channel", channelID).Msg("cache invalidate failed")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) isDisabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disabled
}

func (c *Cache) disable() {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
	c.logger.Warn().Msg("feed caching disabled after Redis error")
}
