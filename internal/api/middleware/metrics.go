package middleware

import (
	"net/http"
	"time"

	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
)

// Metrics records request count, latency and response size, labelled with the
// matched route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		metrics.ObserveHTTP(r.Method, Route(r), rw.status, time.Since(start), rw.bytes)
	})
}
