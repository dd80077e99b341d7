package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

// Geocoder is the geocoding surface the tools need.
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]suggest.Suggestion, error)
	Geocode(ctx context.Context, query string) (*geocoding.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.ReverseResult, error)
	Attribution() string
}

// GeocodingTools provides location search tools.
type GeocodingTools struct {
	service Geocoder
}

func NewGeocodingTools(service Geocoder) *GeocodingTools {
	return &GeocodingTools{service: service}
}

// SuggestLocationsTool returns the definition of suggest_locations.
func (t *GeocodingTools) SuggestLocationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest_locations",
		Description: "Suggest places in greater Melbourne matching a partial query, best match first. Each suggestion has a label, coordinates and its distance from the city centre.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Partial address or place name (e.g., 'lygon st')",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *GeocodingTools) SuggestLocationsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.service == nil {
		return mcp.NewToolResultError("geocoding service not configured"), nil
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	results, err := t.service.Suggest(ctx, query)
	if err != nil && !errors.Is(err, geocoding.ErrNoResults) {
		return mcp.NewToolResultErrorFromErr("suggestion lookup failed", err), nil
	}
	if results == nil {
		results = []suggest.Suggestion{}
	}

	return toolResultJSON(map[string]any{
		"suggestions": results,
		"attribution": t.service.Attribution(),
	})
}

// GeocodeAddressTool returns the definition of geocode_address.
func (t *GeocodingTools) GeocodeAddressTool() mcp.Tool {
	return mcp.Tool{
		Name:        "geocode_address",
		Description: "Geocode an address or place name to latitude/longitude. Results are cached.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"address": map[string]any{
					"type":        "string",
					"description": "Address or place name (e.g., 'Flinders Street Station')",
				},
			},
			Required: []string{"address"},
		},
	}
}

func (t *GeocodingTools) GeocodeAddressHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.service == nil {
		return mcp.NewToolResultError("geocoding service not configured"), nil
	}

	var args struct {
		Address string `json:"address"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	address := strings.TrimSpace(args.Address)
	if address == "" {
		return mcp.NewToolResultError("address parameter is required"), nil
	}

	result, err := t.service.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, geocoding.ErrNoResults) {
			return mcp.NewToolResultErrorf("no results found for address: %s", address), nil
		}
		return mcp.NewToolResultErrorFromErr("geocoding failed", err), nil
	}

	return toolResultJSON(map[string]any{
		"latitude":     result.Latitude,
		"longitude":    result.Longitude,
		"display_name": result.DisplayName,
		"source":       result.Source,
		"cached":       result.Cached,
	})
}

// ReverseGeocodeTool returns the definition of reverse_geocode.
func (t *GeocodingTools) ReverseGeocodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reverse_geocode",
		Description: "Convert latitude/longitude to a street address.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"latitude": map[string]any{
					"type":        "number",
					"description": "Latitude coordinate (must be between -90 and 90)",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Longitude coordinate (must be between -180 and 180)",
				},
			},
			Required: []string{"latitude", "longitude"},
		},
	}
}

func (t *GeocodingTools) ReverseGeocodeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.service == nil {
		return mcp.NewToolResultError("geocoding service not configured"), nil
	}

	var args struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	p := geo.Point{Lat: args.Latitude, Lon: args.Longitude}
	if !p.Valid() {
		return mcp.NewToolResultError("latitude must be between -90 and 90 and longitude between -180 and 180"), nil
	}

	result, err := t.service.ReverseGeocode(ctx, p.Lat, p.Lon)
	if err != nil {
		if errors.Is(err, geocoding.ErrNoResults) {
			return mcp.NewToolResultErrorf("no results found for coordinates: lat=%f, lon=%f", p.Lat, p.Lon), nil
		}
		return mcp.NewToolResultErrorFromErr("reverse geocoding failed", err), nil
	}

	return toolResultJSON(map[string]any{
		"display_name": result.DisplayName,
		"road":         result.Road,
		"locality":     result.Locality,
		"postcode":     result.Postcode,
		"latitude":     result.Point.Lat,
		"longitude":    result.Point.Lon,
	})
}
