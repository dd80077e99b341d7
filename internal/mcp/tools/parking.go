package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
)

// BandsFinder runs a nearby search and groups the bays by distance.
type BandsFinder interface {
	Bands(ctx context.Context, q parking.Query) (bands.Result, error)
}

// ParkingTools provides the parking search and normalization tools.
type ParkingTools struct {
	service BandsFinder
}

func NewParkingTools(service BandsFinder) *ParkingTools {
	return &ParkingTools{service: service}
}

// FindParkingTool returns the definition of find_parking.
func (t *ParkingTools) FindParkingTool() mcp.Tool {
	return mcp.Tool{
		Name: "find_parking",
		Description: "Find on-street parking bays near an address or coordinate in the City of Melbourne, " +
			"grouped into distance bands (within_100m, 100_to_200m, 200_to_500m, 500_to_1000m). " +
			"Provide either address, or latitude and longitude.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"address": map[string]any{
					"type":        "string",
					"description": "Address or place name to search around",
				},
				"latitude": map[string]any{
					"type":        "number",
					"description": "Latitude of the search centre",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Longitude of the search centre",
				},
				"mode": map[string]any{
					"type":        "string",
					"description": "bay (one result per sensor, default) or zone (aggregated per parking zone)",
					"enum":        []string{"bay", "zone"},
				},
			},
		},
	}
}

func (t *ParkingTools) FindParkingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.service == nil {
		return mcp.NewToolResultError("parking service not configured"), nil
	}

	var args struct {
		Address   string   `json:"address"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Mode      string   `json:"mode"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}

	mode, err := parking.ParseMode(args.Mode, parking.ModeBay)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := parking.Query{Text: strings.TrimSpace(args.Address), Mode: mode}
	switch {
	case args.Latitude != nil && args.Longitude != nil:
		q.Center = &geo.Point{Lat: *args.Latitude, Lon: *args.Longitude}
	case args.Latitude != nil || args.Longitude != nil:
		return mcp.NewToolResultError("latitude and longitude must be supplied together"), nil
	case q.Text == "":
		return mcp.NewToolResultError("provide address, or latitude and longitude"), nil
	}

	res, err := t.service.Bands(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, geocoding.ErrNoResults):
			return mcp.NewToolResultErrorf("could not geocode '%s'", q.Text), nil
		case errors.Is(err, parking.ErrInvalidCenter):
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultErrorFromErr("parking search failed", err), nil
	}
	return toolResultJSON(res)
}

// NormalizeResultsTool returns the definition of normalize_results.
func (t *ParkingTools) NormalizeResultsTool() mcp.Tool {
	return mcp.Tool{
		Name: "normalize_results",
		Description: "Normalize a nearby-parking payload ({results:[...]}, {bands:{...}} or {center, bands}) into the four " +
			"fixed distance bands. Unknown shapes yield empty bands.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"payload": map[string]any{
					"description": "The raw payload, as a JSON object or a JSON-encoded string",
				},
			},
			Required: []string{"payload"},
		},
	}
}

func (t *ParkingTools) NormalizeResultsHandler(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if len(args.Payload) == 0 {
		return mcp.NewToolResultError("payload parameter is required"), nil
	}

	raw := []byte(args.Payload)
	// Clients that cannot send nested objects pass the payload as a string.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = []byte(encoded)
	}

	res := bands.Normalize(raw)
	parking.RecordBands(res)
	return toolResultJSON(res)
}
