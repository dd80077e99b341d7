package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	// TierSignup guards the signup form against scripted submissions.
	TierSignup RateLimitTier = "signup"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 15 * time.Minute
)

// RateLimiter keeps one token bucket per tier and client.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	store *limiterStore
}

// NewRateLimiter starts the idle-entry sweeper; call Stop when done.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, store: newLimiterStore(cfg)}
}

// Stop ends the sweeper goroutine.
func (l *RateLimiter) Stop() {
	l.store.stop()
}

// Middleware applies the public tier to every request except health probes
// and scrapes.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	limited := l.Tier(TierPublic)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// Tier limits the wrapped routes with tier's own bucket, answering 429 with
// Retry-After once a client's bucket is empty.
func (l *RateLimiter) Tier(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, interval := l.store.limiter(tier, ClientIP(r, l.cfg.TrustedProxyCIDRs))
			if limiter == nil || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(math.Ceil(interval.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			LoggerFromContext(r.Context()).Warn().
				Str("tier", string(tier)).
				Str("path", r.URL.Path).
				Msg("rate limit exceeded")
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute map[RateLimitTier]int
	done      chan struct{}
	once      sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		perMinute: map[RateLimitTier]int{
			TierPublic: cfg.PublicPerMinute,
			TierSignup: cfg.SignupPerMinute,
		},
		done: make(chan struct{}),
	}
	go store.sweepLoop()
	return store
}

// limiter returns nil when the tier is unlimited.
func (s *limiterStore) limiter(tier RateLimitTier, key string) (*rate.Limiter, time.Duration) {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return nil, 0
	}
	interval := time.Minute / time.Duration(limit)

	lookup := string(tier) + ":" + key
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[lookup]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter, interval
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(rate.Every(interval), limit), lastSeen: time.Now()}
	s.limiters[lookup] = entry
	return entry.limiter, interval
}

func (s *limiterStore) sweepLoop() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *limiterStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) stop() {
	s.once.Do(func() { close(s.done) })
}

// ClientIP identifies the caller. X-Forwarded-For and X-Real-IP are honoured
// only when the direct peer sits inside a trusted proxy CIDR.
func ClientIP(r *http.Request, trustedProxyCIDRs []string) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}
	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	if len(trustedCIDRs) == 0 {
		return false
	}
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(cidrStr)
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}
