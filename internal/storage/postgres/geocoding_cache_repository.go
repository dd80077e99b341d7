package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

// GeocodingCacheRepository implements geocoding.Cache on two tables with
// JSONB payloads and an expires_at column.
type GeocodingCacheRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ geocoding.Cache = (*GeocodingCacheRepository)(nil)

// NewGeocodingCacheRepository creates a new geocoding cache repository.
func NewGeocodingCacheRepository(pool *pgxpool.Pool) *GeocodingCacheRepository {
	return &GeocodingCacheRepository{pool: pool}
}

// WithTx returns a repository bound to tx.
func (r *GeocodingCacheRepository) WithTx(tx pgx.Tx) *GeocodingCacheRepository {
	return &GeocodingCacheRepository{pool: r.pool, tx: tx}
}

// GetForward returns unexpired candidates for key and bumps the hit count.
func (r *GeocodingCacheRepository) GetForward(ctx context.Context, key string) (candidates []suggest.Candidate, ok bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("geocoding_cache_get", start, err) }()

	const query = `
		UPDATE geocoding_cache
		   SET hit_count = hit_count + 1
		 WHERE cache_key = $1
		   AND expires_at > NOW()
		RETURNING candidates
	`
	var raw []byte
	if err := r.queryer().QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached geocode: %w", err)
	}
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, false, fmt.Errorf("decode cached geocode: %w", err)
	}
	return candidates, true, nil
}

// PutForward upserts candidates for key.
func (r *GeocodingCacheRepository) PutForward(ctx context.Context, key string, candidates []suggest.Candidate, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("geocoding_cache_put", start, err) }()

	if candidates == nil {
		candidates = []suggest.Candidate{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode geocode: %w", err)
	}

	const query = `
		INSERT INTO geocoding_cache (cache_key, candidates, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key)
		DO UPDATE SET
			candidates = EXCLUDED.candidates,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`
	if _, err := r.queryer().Exec(ctx, query, key, raw, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("cache geocode: %w", err)
	}
	return nil
}

// GetReverse returns the unexpired reverse result for key.
func (r *GeocodingCacheRepository) GetReverse(ctx context.Context, key string) (result *geocoding.ReverseResult, ok bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("reverse_cache_get", start, err) }()

	const query = `
		UPDATE reverse_geocoding_cache
		   SET hit_count = hit_count + 1
		 WHERE cache_key = $1
		   AND expires_at > NOW()
		RETURNING result
	`
	var raw []byte
	if err := r.queryer().QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached reverse: %w", err)
	}
	result = &geocoding.ReverseResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, false, fmt.Errorf("decode cached reverse: %w", err)
	}
	return result, true, nil
}

// PutReverse upserts the reverse result for key.
func (r *GeocodingCacheRepository) PutReverse(ctx context.Context, key string, result geocoding.ReverseResult, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("reverse_cache_put", start, err) }()

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode reverse: %w", err)
	}

	const query = `
		INSERT INTO reverse_geocoding_cache (cache_key, result, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key)
		DO UPDATE SET
			result = EXCLUDED.result,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`
	if _, err := r.queryer().Exec(ctx, query, key, raw, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("cache reverse: %w", err)
	}
	return nil
}

// DeleteExpired removes expired rows from both tables and reports the total.
func (r *GeocodingCacheRepository) DeleteExpired(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("geocoding_cache_cleanup", start, err) }()

	for _, table := range []string{"geocoding_cache", "reverse_geocoding_cache"} {
		tag, err := r.queryer().Exec(ctx, "DELETE FROM "+table+" WHERE expires_at <= NOW()")
		if err != nil {
			return n, fmt.Errorf("delete expired %s: %w", table, err)
		}
		metrics.GeocodingCacheDeleted.WithLabelValues(table).Add(float64(tag.RowsAffected()))
		n += tag.RowsAffected()
	}
	return n, nil
}

func (r *GeocodingCacheRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
