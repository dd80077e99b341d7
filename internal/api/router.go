package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/handlers"
	"github.com/placxborcx/Onboarding-MainPage/internal/api/middleware"
	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/supersede"
	"github.com/placxborcx/Onboarding-MainPage/web"
)

// Geocoder serves both the geocoding endpoints and typeahead suggestions.
type Geocoder interface {
	handlers.GeocodingService
	handlers.SuggestService
}

// Services are the domain services behind the HTTP API.
type Services struct {
	Geocoder Geocoder
	Parking  handlers.ParkingService
	Signups  handlers.SignupService
	// Health defaults to a checker with no backends.
	Health *handlers.HealthChecker
}

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Router is the fully wrapped HTTP handler. Stop releases the rate limiter's
// background sweeper.
type Router struct {
	Handler http.Handler

	limiter *middleware.RateLimiter
}

func (r *Router) Stop() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

func NewRouter(cfg config.Config, logger zerolog.Logger, svc Services, build BuildInfo) *Router {
	env := cfg.Environment
	sessions := &handlers.Sessions{
		Coordinator: supersede.New(),
		Key: func(r *http.Request) string {
			return middleware.SessionKey(r, cfg.RateLimit.TrustedProxyCIDRs)
		},
	}

	health := svc.Health
	if health == nil {
		health = handlers.NewHealthChecker(nil, nil, nil, build.Version, build.GitCommit)
	}
	geocodingHandler := handlers.NewGeocodingHandler(svc.Geocoder, env)
	suggestHandler := handlers.NewSuggestHandler(svc.Geocoder, sessions, cfg.Suggest.Debounce, env)
	parkingHandler := handlers.NewParkingHandler(svc.Parking, sessions, env)
	signupHandler := handlers.NewSignupHandler(svc.Signups, env)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", web.IndexHandler())
	mux.Handle("GET /app.js", web.AppJSHandler())
	mux.Handle("GET /robots.txt", web.RobotsTxtHandler())

	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", handlers.Readyz())
	mux.Handle("GET /health", health.Health())
	mux.Handle("GET /api/health", handlers.APIHealth())
	mux.Handle("GET /version", VersionHandler(build.Version, build.GitCommit, build.BuildDate))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))

	nearby := http.HandlerFunc(parkingHandler.Nearby)
	mux.Handle("GET /api/v1/parking/nearby", nearby)
	mux.Handle("GET /api/parking/nearby", nearby)
	mux.Handle("GET /api/v1/parking/bands", http.HandlerFunc(parkingHandler.Bands))
	mux.Handle("POST /api/v1/parking/normalize",
		middleware.RequestSize(middleware.NormalizeMaxBodySize)(http.HandlerFunc(parkingHandler.Normalize)))

	mux.Handle("GET /api/v1/suggest", http.HandlerFunc(suggestHandler.Suggest))
	mux.Handle("GET /api/v1/geocode", http.HandlerFunc(geocodingHandler.Geocode))
	mux.Handle("GET /api/v1/reverse-geocode", http.HandlerFunc(geocodingHandler.ReverseGeocode))

	signup := limiter.Tier(middleware.TierSignup)(
		middleware.RequestSize(middleware.DefaultMaxBodySize)(http.HandlerFunc(signupHandler.Create)))
	mux.Handle("POST /api/signup", signup)
	mux.Handle("POST /api/v1/signup", signup)

	var h http.Handler = middleware.Routed(mux)
	h = limiter.Middleware(h)
	h = middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://"))(h)
	h = middleware.CORS(cfg.CORS, logger)(h)
	h = middleware.Metrics(h)
	h = middleware.RequestLogging(logger)(h)
	h = middleware.CorrelationID(logger)(h)
	h = middleware.Tracing(h)
	h = middleware.TrackRoute(h)

	return &Router{Handler: h, limiter: limiter}
}
