// Package cache is a small TTL cache for computed reports. Diff reports over
// completed sessions are stable, but the stats summary spans the whole
// inventory and drifts as the scanner inserts new rows; the TTL bounds that
// staleness. Session deletion invalidates both explicitly via the API layer,
// since it changes history rather than appending to it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatsSummaryKey = "sharewatch:stats:summary"
	diffKeyPrefix   = "sharewatch:diff:"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// DiffKey builds the cache key for a session pair. Order matters: diffing
// (a, b) and (b, a) are different reports.
func DiffKey(sessionA, sessionB int64) string {
	return fmt.Sprintf("%s%d:%d", diffKeyPrefix, sessionA, sessionB)
}

// GetJSON loads a cached value into dest, reporting whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cache key %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("decoding cache key %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	return nil
}

// InvalidateReports drops the stats summary and every cached diff report.
// Called when a session is deleted, the one event that changes history.
func (c *Cache) InvalidateReports(ctx context.Context) error {
	if err := c.client.Del(ctx, StatsSummaryKey).Err(); err != nil {
		return fmt.Errorf("dropping stats summary: %w", err)
	}

	iter := c.client.Scan(ctx, 0, diffKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("dropping diff key %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}
