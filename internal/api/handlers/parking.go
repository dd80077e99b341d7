package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
)

// ParkingService finds parking around a place.
type ParkingService interface {
	Nearby(ctx context.Context, q parking.Query) (*parking.NearbyResponse, error)
	Bands(ctx context.Context, q parking.Query) (bands.Result, error)
}

// ParkingHandler serves nearby searches, their distance-banded form, and
// normalization of result payloads produced elsewhere.
type ParkingHandler struct {
	Service  ParkingService
	Sessions *Sessions
	Env      string
}

func NewParkingHandler(service ParkingService, sessions *Sessions, env string) *ParkingHandler {
	return &ParkingHandler{Service: service, Sessions: sessions, Env: env}
}

// Nearby handles GET /api/v1/parking/nearby?q=|lat=&lon=[&mode=zone|bay].
func (h *ParkingHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r, parking.ModeZone)
	if !ok {
		return
	}

	resp, err := h.Service.Nearby(r.Context(), q)
	if err != nil {
		h.writeError(w, r, q, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Bands handles GET /api/v1/parking/bands. A newer bands request from the
// same client session cancels this one, which then answers 409.
func (h *ParkingHandler) Bands(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r, parking.ModeBay)
	if !ok {
		return
	}

	ctx, ticket := h.Sessions.begin(r, "bands")
	if ticket != nil {
		defer ticket.Release()
	}

	res, err := h.Service.Bands(ctx, q)
	if wasSuperseded(ctx, ticket, err) {
		writeSuperseded(w, r, "bands", h.Env)
		return
	}
	if err != nil {
		h.writeError(w, r, q, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Normalize handles POST /api/v1/parking/normalize. Any JSON document is
// accepted; shapes that carry no results yield empty bands.
func (h *ParkingHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Payload too large", err, h.Env,
				problem.WithDetail(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit)))
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.Env)
		return
	}
	if !json.Valid(body) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid JSON",
			errors.New("request body is not valid JSON"), h.Env, problem.WithDetail("request body is not valid JSON"))
		return
	}

	res := bands.Normalize(body)
	parking.RecordBands(res)
	writeJSON(w, http.StatusOK, res)
}

func (h *ParkingHandler) parseQuery(w http.ResponseWriter, r *http.Request, fallback parking.Mode) (parking.Query, bool) {
	values := r.URL.Query()
	q := parking.Query{Text: strings.TrimSpace(values.Get("q"))}

	mode, err := parking.ParseMode(values.Get("mode"), fallback)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid mode", err, h.Env,
			problem.WithDetail(err.Error()))
		return q, false
	}
	q.Mode = mode

	center, err := parseCoordinates(r)
	switch {
	case err == nil:
		q.Center = &center
	case errors.Is(err, errCoordinatesMissing):
		if q.Text == "" {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing location", parking.ErrCenterRequired, h.Env,
				problem.WithDetail("Provide q (address) or lat & lon"))
			return q, false
		}
	default:
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid coordinates", err, h.Env,
			problem.WithDetail(err.Error()))
		return q, false
	}
	return q, true
}

func (h *ParkingHandler) writeError(w http.ResponseWriter, r *http.Request, q parking.Query, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is left to read a response.
		return
	case errors.Is(err, parking.ErrCenterRequired):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing location", err, h.Env,
			problem.WithDetail("Provide q (address) or lat & lon"))
	case errors.Is(err, parking.ErrInvalidCenter), errors.Is(err, parking.ErrInvalidMode):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, geocoding.ErrNoResults):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Location not found", err, h.Env,
			problem.WithDetail(fmt.Sprintf("Could not geocode '%s'", q.Text)))
	case errors.Is(err, context.DeadlineExceeded):
		problem.Write(w, r, http.StatusGatewayTimeout, problem.TypeTimeout, "Upstream timed out", err, h.Env)
	case errors.Is(err, geocoding.ErrGeocodingFailed):
		problem.Write(w, r, http.StatusBadGateway, problem.TypeGeocodingFailed, "Geocoding failed", err, h.Env)
	case errors.Is(err, parking.ErrUpstream):
		problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Parking data unavailable", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
