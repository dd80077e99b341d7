package geocoding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
	"github.com/placxborcx/Onboarding-MainPage/internal/telemetry"
)

// ErrGeocodingFailed is returned when the upstream provider fails.
var ErrGeocodingFailed = errors.New("geocoding failed")

// ErrNoResults is returned when no candidate lies inside the search radius.
var ErrNoResults = errors.New("no geocoding results found")

// ErrEmptyQuery is returned for blank forward queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

const (
	// candidateLimit is how many raw candidates are requested before ranking.
	candidateLimit = 10
	// upstreamTimeout bounds a shared upstream call once its callers have gone.
	upstreamTimeout = 15 * time.Second
)

// Options tune ranking and caching.
type Options struct {
	Reference   geo.Point
	MaxRadiusKm float64
	Limit       int
	CacheTTL    time.Duration
}

// GeocodingService answers suggestion, forward and reverse lookups using a
// cache in front of one upstream provider.
type GeocodingService struct {
	provider Provider
	cache    Cache
	logger   zerolog.Logger
	opts     Options
	group    singleflight.Group
}

// NewGeocodingService creates a new geocoding service.
func NewGeocodingService(provider Provider, cache Cache, logger zerolog.Logger, opts Options) *GeocodingService {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * 24 * time.Hour
	}
	return &GeocodingService{
		provider: provider,
		cache:    cache,
		logger:   logger,
		opts:     opts,
	}
}

// GeocodeResult represents the result of a forward geocoding operation.
type GeocodeResult struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`
	Cached      bool    `json:"cached"`
}

// Point returns the result coordinate.
func (r GeocodeResult) Point() geo.Point {
	return geo.Point{Lat: r.Latitude, Lon: r.Longitude}
}

// Attribution returns the provider notice to show next to results.
func (s *GeocodingService) Attribution() string {
	return s.provider.Attribution()
}

// Suggest returns ranked suggestions for a partial query, at most Options.Limit.
// A blank query returns an empty slice without calling the provider.
func (s *GeocodingService) Suggest(ctx context.Context, query string) ([]suggest.Suggestion, error) {
	if NormalizeQuery(query) == "" {
		return []suggest.Suggestion{}, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "geocoding.Suggest")
	defer span.End()

	candidates, _, err := s.candidates(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ranked := suggest.Rank(query, candidates, s.opts.Reference, s.opts.MaxRadiusKm)
	if len(ranked) > s.opts.Limit {
		ranked = ranked[:s.opts.Limit]
	}
	span.SetAttributes(
		attribute.Int("geocoding.candidates", len(candidates)),
		attribute.Int("geocoding.suggestions", len(ranked)),
	)
	return ranked, nil
}

// Geocode resolves a query to the best-ranked candidate inside the radius.
func (s *GeocodingService) Geocode(ctx context.Context, query string) (*GeocodeResult, error) {
	if NormalizeQuery(query) == "" {
		return nil, ErrEmptyQuery
	}

	ctx, span := telemetry.Tracer().Start(ctx, "geocoding.Geocode")
	defer span.End()

	candidates, cached, err := s.candidates(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ranked := suggest.Rank(query, candidates, s.opts.Reference, s.opts.MaxRadiusKm)
	if len(ranked) == 0 {
		metrics.GeocodingFailuresTotal.WithLabelValues("forward", "not_found").Inc()
		s.logger.Warn().Str("query", query).Int("candidates", len(candidates)).Msg("no geocoding candidates inside search radius")
		return nil, fmt.Errorf("%w for query: %s", ErrNoResults, query)
	}

	best := ranked[0]
	source := s.provider.Name()
	if cached {
		source = "cache"
	}
	return &GeocodeResult{
		Latitude:    best.Lat,
		Longitude:   best.Lon,
		DisplayName: best.Label,
		Source:      source,
		Cached:      cached,
	}, nil
}

// ReverseGeocode finds the address at a coordinate.
func (s *GeocodingService) ReverseGeocode(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil, fmt.Errorf("invalid coordinates: %s", p)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "geocoding.ReverseGeocode")
	defer span.End()

	key := s.provider.Name() + ":" + p.CacheKey()
	if cached, ok, err := s.cache.GetReverse(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to check reverse geocoding cache")
	} else if ok {
		metrics.GeocodingCacheHitsTotal.WithLabelValues("reverse").Inc()
		metrics.GeocodingRequestsTotal.WithLabelValues("reverse", "cache").Inc()
		cached.Source = "cache"
		return cached, nil
	}
	metrics.GeocodingCacheMissesTotal.WithLabelValues("reverse").Inc()

	v, err := s.shared(ctx, "rev:"+key, func(ctx context.Context) (any, error) {
		v, err := s.observe("reverse", func() (any, error) { return s.provider.Reverse(ctx, p) })
		if err != nil {
			return nil, err
		}
		result := v.(*ReverseResult)
		if err := s.cache.PutReverse(ctx, key, *result, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache reverse geocoding result")
		}
		return result, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrNoResults) {
			metrics.GeocodingFailuresTotal.WithLabelValues("reverse", "not_found").Inc()
			return nil, err
		}
		metrics.GeocodingFailuresTotal.WithLabelValues("reverse", failureReason(err)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrGeocodingFailed, err)
	}

	metrics.GeocodingRequestsTotal.WithLabelValues("reverse", s.provider.Name()).Inc()
	out := *v.(*ReverseResult)
	return &out, nil
}

// candidates returns raw provider candidates for query, from cache when
// possible. Identical concurrent misses share one upstream call.
func (s *GeocodingService) candidates(ctx context.Context, query string) ([]suggest.Candidate, bool, error) {
	normalized := NormalizeQuery(query)
	key := s.provider.Name() + ":" + normalized

	cached, ok, err := s.cache.GetForward(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("failed to check geocoding cache")
	}
	if ok {
		metrics.GeocodingCacheHitsTotal.WithLabelValues("forward").Inc()
		metrics.GeocodingRequestsTotal.WithLabelValues("forward", "cache").Inc()
		s.logger.Debug().Str("query", query).Int("candidates", len(cached)).Msg("geocoding cache hit")
		return cached, true, nil
	}

	metrics.GeocodingCacheMissesTotal.WithLabelValues("forward").Inc()
	s.logger.Debug().Str("query", query).Str("provider", s.provider.Name()).Msg("geocoding cache miss, calling provider")

	v, err := s.shared(ctx, "fwd:"+key, func(ctx context.Context) (any, error) {
		v, err := s.observe("search", func() (any, error) {
			return s.provider.Candidates(ctx, normalized, candidateLimit)
		})
		if err != nil {
			return nil, err
		}
		candidates := v.([]suggest.Candidate)
		if err := s.cache.PutForward(ctx, key, candidates, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("failed to cache geocoding result")
		}
		return candidates, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		metrics.GeocodingFailuresTotal.WithLabelValues("forward", failureReason(err)).Inc()
		s.logger.Error().Err(err).Str("query", query).Str("provider", s.provider.Name()).Msg("geocoding provider search failed")
		return nil, false, fmt.Errorf("%w: %v", ErrGeocodingFailed, err)
	}

	metrics.GeocodingRequestsTotal.WithLabelValues("forward", s.provider.Name()).Inc()
	return v.([]suggest.Candidate), false, nil
}

// shared runs fn once per key across concurrent callers. fn runs detached from
// any single caller's cancellation and should store its own result, so a
// lookup abandoned by every caller still fills the cache.
func (s *GeocodingService) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upstreamTimeout)
		defer cancel()
		return fn(callCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// observe records provider latency and outcome for one upstream call.
func (s *GeocodingService) observe(endpoint string, fn func() (any, error)) (any, error) {
	start := time.Now()
	v, err := fn()
	metrics.GeocodingProviderLatency.WithLabelValues(s.provider.Name(), endpoint).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GeocodingProviderRequestsTotal.WithLabelValues(s.provider.Name(), endpoint, status).Inc()
	return v, err
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
