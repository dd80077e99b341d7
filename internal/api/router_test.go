package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/middleware"
	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
	"github.com/placxborcx/Onboarding-MainPage/internal/signup"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, q string) (*geocoding.GeocodeResult, error) {
	return &geocoding.GeocodeResult{Latitude: -37.81, Longitude: 144.96, DisplayName: q, Source: "nominatim"}, nil
}

func (stubGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (*geocoding.ReverseResult, error) {
	return &geocoding.ReverseResult{Point: geo.Point{Lat: lat, Lon: lon}, DisplayName: "Flinders St"}, nil
}

func (stubGeocoder) Suggest(context.Context, string) ([]suggest.Suggestion, error) {
	return []suggest.Suggestion{}, nil
}

func (stubGeocoder) Attribution() string { return "Data © OpenStreetMap contributors" }

type stubParking struct{}

func (stubParking) Nearby(_ context.Context, q parking.Query) (*parking.NearbyResponse, error) {
	if q.Text == "Nowhere" {
		return nil, geocoding.ErrNoResults
	}
	return &parking.NearbyResponse{Mode: q.Mode, Message: parking.MessageNoSpace}, nil
}

func (stubParking) Bands(context.Context, parking.Query) (bands.Result, error) {
	return bands.Result{Bands: bands.NewBandSet()}, nil
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Suggest.Debounce = 0
	cfg.RateLimit.PublicPerMinute = 1000
	if mutate != nil {
		mutate(&cfg)
	}

	router := NewRouter(cfg, zerolog.Nop(), Services{
		Geocoder: stubGeocoder{},
		Parking:  stubParking{},
		Signups:  signup.NewService(signup.NewMemoryRepository(), zerolog.Nop()),
	}, BuildInfo{Version: "1.2.3", GitCommit: "abc"})
	t.Cleanup(router.Stop)
	return router.Handler
}

func do(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/app.js", "", http.StatusOK},
		{http.MethodGet, "/robots.txt", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/version", "", http.StatusOK},
		{http.MethodGet, "/api/v1/parking/nearby?q=Collins+St", "", http.StatusOK},
		{http.MethodGet, "/api/parking/nearby?lat=-37.81&lon=144.96", "", http.StatusOK},
		{http.MethodGet, "/api/parking/nearby", "", http.StatusBadRequest},
		{http.MethodGet, "/api/parking/nearby?q=Nowhere", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/parking/bands?q=Collins+St", "", http.StatusOK},
		{http.MethodPost, "/api/v1/parking/normalize", `{"results":[]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/suggest?q=lyg", "", http.StatusOK},
		{http.MethodGet, "/api/v1/geocode?q=Collins+St", "", http.StatusOK},
		{http.MethodGet, "/api/v1/reverse-geocode?lat=-37.81&lon=144.96", "", http.StatusOK},
		{http.MethodPost, "/api/signup", `{"name":"Ada","email":"ada@example.com"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/signup", `{"name":"Bo","email":"bo@example.com"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/parking/nearby", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/signup", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := do(h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRouter_OptionsAlwaysNoContent(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodOptions, "/api/parking/nearby", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t, func(c *config.Config) {
		c.CORS.AllowedOrigins = []string{"https://parkfinder.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/suggest", nil)
	req.Header.Set("Origin", "https://parkfinder.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://parkfinder.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.SessionHeader)
}

func TestRouter_AmbientHeaders(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodGet, "/api/health", "")

	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self'")
}

func TestRouter_SignupRateLimited(t *testing.T) {
	h := newTestRouter(t, func(c *config.Config) {
		c.RateLimit.SignupPerMinute = 1
	})

	first := do(h, http.MethodPost, "/api/signup", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(h, http.MethodPost, "/api/signup", `{"name":"Bo","email":"bo@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Other routes keep their own bucket.
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/health", "").Code)
}

func TestRouter_NormalizeBodyLimit(t *testing.T) {
	h := newTestRouter(t, nil)

	big := `{"results":[` + strings.Repeat(`{"distance":"5 m"},`, 60000) + `{}]}`
	require.Greater(t, int64(len(big)), middleware.NormalizeMaxBodySize)

	w := do(h, http.MethodPost, "/api/v1/parking/normalize", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_MetricsLabelledByRoute(t *testing.T) {
	h := newTestRouter(t, nil)

	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/parking/nearby?q=Collins+St", "").Code)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="GET /api/v1/parking/nearby"`)
}
