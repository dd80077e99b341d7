package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(cfg)
	t.Cleanup(limiter.Stop)
	return limiter
}

func serveFrom(h http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_PublicBurstThenBlocked(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 3})
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := serveFrom(handler, http.MethodGet, "/api/v1/suggest", "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := serveFrom(handler, http.MethodGet, "/api/v1/suggest", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("Retry-After"))

	other := serveFrom(handler, http.MethodGet, "/api/v1/suggest", "10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, other.Code, "buckets are per client")
}

func TestRateLimit_ProbesBypass(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 1})
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serveFrom(handler, http.MethodGet, "/healthz", "10.0.0.1:1").Code)
		assert.Equal(t, http.StatusOK, serveFrom(handler, http.MethodGet, "/metrics", "10.0.0.1:1").Code)
	}
}

func TestRateLimit_ZeroMeansUnlimited(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{})
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serveFrom(handler, http.MethodGet, "/api/v1/suggest", "10.0.0.1:1").Code)
	}
}

func TestRateLimit_SignupTier(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 100, SignupPerMinute: 2})
	handler := limiter.Middleware(limiter.Tier(TierSignup)(okHandler()))

	assert.Equal(t, http.StatusOK, serveFrom(handler, http.MethodPost, "/api/signup", "10.0.0.9:1").Code)
	assert.Equal(t, http.StatusOK, serveFrom(handler, http.MethodPost, "/api/signup", "10.0.0.9:1").Code)

	rec := serveFrom(handler, http.MethodPost, "/api/signup", "10.0.0.9:1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestLimiterStoreSweep(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 10})
	defer store.stop()

	store.limiter(TierPublic, "a")
	store.limiter(TierPublic, "b")
	store.mu.Lock()
	store.limiters[string(TierPublic)+":a"].lastSeen = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	store.sweep(time.Now())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.limiters, 1)
	assert.Contains(t, store.limiters, string(TierPublic)+":b")
}

func TestLimiterStoreStopIsIdempotent(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{})
	assert.NotPanics(t, func() {
		store.stop()
		store.stop()
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		trusted    []string
		want       string
	}{
		{"direct peer", "203.0.113.5:4000", "", "", nil, "203.0.113.5"},
		{"untrusted forwarded header ignored", "203.0.113.5:4000", "1.2.3.4", "", nil, "203.0.113.5"},
		{"trusted proxy forwarded", "10.0.0.2:4000", "1.2.3.4, 10.0.0.2", "", []string{"10.0.0.0/8"}, "1.2.3.4"},
		{"trusted proxy real ip", "10.0.0.2:4000", "", "5.6.7.8", []string{"10.0.0.0/8"}, "5.6.7.8"},
		{"bad cidr skipped", "10.0.0.2:4000", "1.2.3.4", "", []string{"not-a-cidr"}, "10.0.0.2"},
		{"no port", "198.51.100.7", "", "", nil, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}
