package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/supersede"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errCoordinatesMissing means neither lat nor lon was supplied.
var errCoordinatesMissing = errors.New("lat and lon missing")

// parseCoordinates reads lat/lon query parameters. Supplying only one of the
// pair, a non-number or an out-of-range value is an error.
func parseCoordinates(r *http.Request) (geo.Point, error) {
	latStr := strings.TrimSpace(r.URL.Query().Get("lat"))
	lonStr := strings.TrimSpace(r.URL.Query().Get("lon"))
	if latStr == "" && lonStr == "" {
		return geo.Point{}, errCoordinatesMissing
	}
	if latStr == "" || lonStr == "" {
		return geo.Point{}, errors.New("lat and lon must be supplied together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Point{}, errors.New("latitude must be a valid number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return geo.Point{}, errors.New("longitude must be a valid number")
	}

	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("coordinates out of range: %s", p)
	}
	return p, nil
}

// Sessions pairs a supersession coordinator with the function that decides
// which requests belong to the same client.
type Sessions struct {
	Coordinator *supersede.Coordinator
	Key         func(*http.Request) string
}

// begin starts a ticket for endpoint, or returns a no-op when supersession is off.
func (s *Sessions) begin(r *http.Request, endpoint string) (context.Context, *supersede.Ticket) {
	if s == nil || s.Coordinator == nil || s.Key == nil {
		return r.Context(), nil
	}
	return s.Coordinator.Begin(r.Context(), endpoint+":"+s.Key(r))
}

// wasSuperseded reports whether the request lost to a newer one, either by
// its ticket or by the cause its context was cancelled with.
func wasSuperseded(ctx context.Context, ticket *supersede.Ticket, err error) bool {
	if ticket != nil && ticket.Superseded() {
		return true
	}
	return errors.Is(err, supersede.ErrSuperseded) || errors.Is(context.Cause(ctx), supersede.ErrSuperseded)
}

func writeSuperseded(w http.ResponseWriter, r *http.Request, endpoint, env string) {
	metrics.SupersededRequestsTotal.WithLabelValues(endpoint).Inc()
	problem.Write(w, r, http.StatusConflict, problem.TypeSuperseded, "Superseded", supersede.ErrSuperseded, env,
		problem.WithDetail("A newer request from this client replaced this one"))
}
