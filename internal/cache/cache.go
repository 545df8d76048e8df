/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for the unit directory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultUnitListTTL  = 5 * time.Minute
	DefaultOccupancyTTL = 1 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyUnitList  = "hearth:cache:units"
	KeyOccupancy = "hearth:cache:occupancy:" // + unit_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	UnitListTTL  time.Duration
	OccupancyTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		UnitListTTL:    DefaultUnitListTTL,
		OccupancyTTL:   DefaultOccupancyTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. A failed Redis connection yields a
// disabled cache rather than an error so the service can run without it.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// CachedUnit represents a cached unit record.
type CachedUnit struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number"`
	Floor      int    `json:"floor"`
	UnitType   string `json:"unit_type"`
}

// CachedOccupancy represents cached occupancy state for a unit.
type CachedOccupancy struct {
	UnitID      string `json:"unit_id"`
	Occupied    bool   `json:"occupied"`
	TenantID    string `json:"tenant_id,omitempty"`
	TenantEmail string `json:"tenant_email,omitempty"`
	TenantName  string `json:"tenant_name,omitempty"`
}

// GetUnitList retrieves the cached list of units.
func (c *Cache) GetUnitList(ctx context.Context) ([]CachedUnit, bool) {
	var units []CachedUnit
	found, err := c.get(ctx, KeyUnitList, &units)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(units)).Msg("unit list cache hit")
	return units, true
}

// SetUnitList caches the list of units.
func (c *Cache) SetUnitList(ctx context.Context, units []CachedUnit) error {
	return c.set(ctx, KeyUnitList, units, c.config.UnitListTTL)
}

// InvalidateUnitList removes the cached unit list.
func (c *Cache) InvalidateUnitList(ctx context.Context) error {
	return c.delete(ctx, KeyUnitList)
}

// GetOccupancy retrieves cached occupancy state for a unit.
func (c *Cache) GetOccupancy(ctx context.Context, unitID string) (*CachedOccupancy, bool) {
	var occ CachedOccupancy
	found, err := c.get(ctx, KeyOccupancy+unitID, &occ)
	if err != nil || !found {
		return nil, false
	}
	return &occ, true
}

// SetOccupancy caches occupancy state for a unit.
func (c *Cache) SetOccupancy(ctx context.Context, occ *CachedOccupancy) error {
	if occ == nil || occ.UnitID == "" {
		return nil
	}
	return c.set(ctx, KeyOccupancy+occ.UnitID, occ, c.config.OccupancyTTL)
}

// InvalidateOccupancy removes cached occupancy for a unit.
func (c *Cache) InvalidateOccupancy(ctx context.Context, unitID string) error {
	return c.delete(ctx, KeyOccupancy+unitID)
}
