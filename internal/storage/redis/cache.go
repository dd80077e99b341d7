// Package redis keeps the geocoding cache in Redis so replicas share it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

const (
	forwardPrefix = "parkfinder:geocode:fwd:"
	reversePrefix = "parkfinder:geocode:rev:"
)

// GeocodingCache implements geocoding.Cache with JSON values and native TTLs.
type GeocodingCache struct {
	client *goredis.Client
}

var _ geocoding.Cache = (*GeocodingCache)(nil)

// NewGeocodingCache wraps an existing client.
func NewGeocodingCache(client *goredis.Client) *GeocodingCache {
	return &GeocodingCache{client: client}
}

// Ping checks the connection.
func (c *GeocodingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Open parses redisURL (redis:// or rediss://), connects and pings.
func Open(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *GeocodingCache) GetForward(ctx context.Context, key string) ([]suggest.Candidate, bool, error) {
	var out []suggest.Candidate
	ok, err := c.get(ctx, forwardPrefix+key, &out)
	if !ok || err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *GeocodingCache) PutForward(ctx context.Context, key string, candidates []suggest.Candidate, ttl time.Duration) error {
	if candidates == nil {
		candidates = []suggest.Candidate{}
	}
	return c.set(ctx, forwardPrefix+key, candidates, ttl)
}

func (c *GeocodingCache) GetReverse(ctx context.Context, key string) (*geocoding.ReverseResult, bool, error) {
	var out geocoding.ReverseResult
	ok, err := c.get(ctx, reversePrefix+key, &out)
	if !ok || err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func (c *GeocodingCache) PutReverse(ctx context.Context, key string, result geocoding.ReverseResult, ttl time.Duration) error {
	return c.set(ctx, reversePrefix+key, result, ttl)
}

func (c *GeocodingCache) get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *GeocodingCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
