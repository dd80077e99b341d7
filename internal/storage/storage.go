// Package storage wires the configured persistence backends.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/signup"
	"github.com/placxborcx/Onboarding-MainPage/internal/storage/postgres"
	"github.com/placxborcx/Onboarding-MainPage/internal/storage/redis"
)

// Expirer is a cache whose expired entries must be deleted explicitly.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Backends holds the stores selected by configuration.
type Backends struct {
	Cache   geocoding.Cache
	Signups signup.Repository
	// Pool is nil when no database is configured.
	Pool *pgxpool.Pool

	closers []func()
}

// Open connects the database when DATABASE_URL is set and builds the
// geocoding cache named by CACHE_BACKEND.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
		if err != nil {
			return nil, err
		}
		b.Pool = pool
		b.closers = append(b.closers, pool.Close)
		b.Signups = postgres.NewSignupRepository(pool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, signups are kept in memory")
		b.Signups = signup.NewMemoryRepository()
	}

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := redis.Open(ctx, cfg.Cache.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.Cache = redis.NewGeocodingCache(client)
	case config.CachePostgres:
		if b.Pool == nil {
			b.Close()
			return nil, fmt.Errorf("cache backend %q requires DATABASE_URL", cfg.Cache.Backend)
		}
		b.Cache = postgres.NewGeocodingCacheRepository(b.Pool)
	default:
		b.Cache = geocoding.NewMemoryCache()
	}

	logger.Info().
		Str("cache_backend", cfg.Cache.Backend).
		Bool("database", b.Pool != nil).
		Msg("storage backends ready")
	return b, nil
}

// Expirer returns the cache as an Expirer when its backend needs sweeping.
// Redis expires keys itself.
func (b *Backends) Expirer() (Expirer, bool) {
	e, ok := b.Cache.(Expirer)
	return e, ok
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
