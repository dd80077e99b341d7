package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

// SuggestService produces ranked place suggestions for a partial query.
type SuggestService interface {
	Suggest(ctx context.Context, query string) ([]suggest.Suggestion, error)
	Attribution() string
}

// SuggestHandler serves the typeahead endpoint. Each request first waits out
// the debounce window; a newer keystroke from the same session during that
// window or during the upstream call makes this request answer 409.
type SuggestHandler struct {
	Service  SuggestService
	Sessions *Sessions
	Debounce time.Duration
	Env      string
}

func NewSuggestHandler(service SuggestService, sessions *Sessions, debounce time.Duration, env string) *SuggestHandler {
	return &SuggestHandler{Service: service, Sessions: sessions, Debounce: debounce, Env: env}
}

type suggestResponse struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Attribution string               `json:"attribution"`
}

// Suggest handles GET /api/v1/suggest?q=.
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, suggestResponse{Suggestions: []suggest.Suggestion{}, Attribution: h.Service.Attribution()})
		return
	}

	ctx, ticket := h.Sessions.begin(r, "suggest")
	if ticket != nil {
		defer ticket.Release()
		if err := ticket.Settle(ctx, h.Debounce); err != nil {
			if wasSuperseded(ctx, ticket, err) {
				writeSuperseded(w, r, "suggest", h.Env)
			}
			// Otherwise the client went away; nothing to write.
			return
		}
	}

	results, err := h.Service.Suggest(ctx, query)
	if wasSuperseded(ctx, ticket, err) {
		writeSuperseded(w, r, "suggest", h.Env)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			problem.Write(w, r, http.StatusGatewayTimeout, problem.TypeTimeout, "Upstream timed out", err, h.Env)
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, geocoding.ErrNoResults):
			results = []suggest.Suggestion{}
		default:
			problem.Write(w, r, http.StatusBadGateway, problem.TypeGeocodingFailed, "Suggestions unavailable", err, h.Env)
		}
		if results == nil {
			return
		}
	}
	if results == nil {
		results = []suggest.Suggestion{}
	}

	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: results, Attribution: h.Service.Attribution()})
}
