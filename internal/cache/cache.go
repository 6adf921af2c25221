// Package cache keeps computed summary reports in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// ErrCacheMiss means no report is cached under the key.
var ErrCacheMiss = errors.New("cache miss")

// DefaultPrefix namespaces summary keys.
const DefaultPrefix = "boomlift:summary:"

// SummaryCache stores reports keyed by store version and calendar day.
type SummaryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient creates a Redis client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewSummaryCache creates a cache. A non-positive ttl keeps entries until evicted.
func NewSummaryCache(client *redis.Client, prefix string, ttl time.Duration) *SummaryCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &SummaryCache{client: client, prefix: prefix, ttl: ttl}
}

// Key identifies the report for a store version on the calendar day of now.
// Warnings and review periods change with the day, so the day is part of the key.
func (c *SummaryCache) Key(version uint64, now time.Time) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, version, now.Format(models.DateLayout))
}

// Get returns the cached report for key.
func (c *SummaryCache) Get(ctx context.Context, key string) (models.Report, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.Report{}, ErrCacheMiss
		}
		return models.Report{}, err
	}
	var report models.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return models.Report{}, fmt.Errorf("decode cached report: %w", err)
	}
	return report, nil
}

// Set stores report under key.
func (c *SummaryCache) Set(ctx context.Context, key string, report models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Ping checks the Redis connection.
func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
