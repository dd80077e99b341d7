package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
)

// GeocodingService defines the interface for geocoding operations.
type GeocodingService interface {
	Geocode(ctx context.Context, query string) (*geocoding.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.ReverseResult, error)
	Attribution() string
}

// GeocodingHandler handles geocoding requests.
type GeocodingHandler struct {
	Service GeocodingService
	Env     string
}

// NewGeocodingHandler creates a new geocoding handler.
func NewGeocodingHandler(service GeocodingService, env string) *GeocodingHandler {
	return &GeocodingHandler{Service: service, Env: env}
}

type geocodeResponse struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`
	Cached      bool    `json:"cached"`
	Attribution string  `json:"attribution"`
}

type reverseGeocodeResponse struct {
	DisplayName string  `json:"display_name"`
	Road        string  `json:"road,omitempty"`
	Locality    string  `json:"locality,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Source      string  `json:"source"`
	Attribution string  `json:"attribution"`
}

// Geocode handles GET /api/v1/geocode?q=.
func (h *GeocodingHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, "")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing required parameter",
			errors.New("query parameter 'q' is required"), h.Env)
		return
	}

	result, err := h.Service.Geocode(r.Context(), query)
	if err != nil {
		h.writeGeocodingError(w, r, err, "No geocoding results found for the given query")
		return
	}

	writeJSON(w, http.StatusOK, geocodeResponse{
		Latitude:    result.Latitude,
		Longitude:   result.Longitude,
		DisplayName: result.DisplayName,
		Source:      result.Source,
		Cached:      result.Cached,
		Attribution: h.Service.Attribution(),
	})
}

// ReverseGeocode handles GET /api/v1/reverse-geocode?lat=&lon=.
func (h *GeocodingHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, "")
		return
	}

	point, err := parseCoordinates(r)
	if err != nil {
		if errors.Is(err, errCoordinatesMissing) {
			err = errors.New("query parameters 'lat' and 'lon' are required")
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid coordinates", err, h.Env,
			problem.WithDetail(err.Error()))
		return
	}

	result, err := h.Service.ReverseGeocode(r.Context(), point.Lat, point.Lon)
	if err != nil {
		h.writeGeocodingError(w, r, err, "No reverse geocoding results found for the given coordinates")
		return
	}

	writeJSON(w, http.StatusOK, reverseGeocodeResponse{
		DisplayName: result.DisplayName,
		Road:        result.Road,
		Locality:    result.Locality,
		Postcode:    result.Postcode,
		Latitude:    result.Point.Lat,
		Longitude:   result.Point.Lon,
		Source:      result.Source,
		Attribution: h.Service.Attribution(),
	})
}

func (h *GeocodingHandler) writeGeocodingError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, geocoding.ErrNoResults):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "No results found", err, h.Env,
			problem.WithDetail(notFound))
	case errors.Is(err, context.DeadlineExceeded):
		problem.Write(w, r, http.StatusGatewayTimeout, problem.TypeTimeout, "Geocoder timed out", err, h.Env)
	default:
		problem.Write(w, r, http.StatusBadGateway, problem.TypeGeocodingFailed, "Geocoding failed", err, h.Env)
	}
}
