package middleware

import (
	"context"
	"net/http"
)

type routeHolder struct {
	pattern string
}

type routeKey struct{}

// TrackRoute must wrap the whole chain. ServeMux records the matched pattern
// on the request it is handed, which outer middleware never sees; the holder
// installed here carries it back out.
func TrackRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), routeKey{}, &routeHolder{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Routed wraps the mux itself and publishes the pattern it matched.
func Routed(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
	})
}

// Route returns the matched ServeMux pattern, or "" before routing or when
// nothing matched.
func Route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		return h.pattern
	}
	return ""
}
