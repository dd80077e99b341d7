// Package resources exposes read-only reference data over MCP.
package resources

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
)

const (
	BandsURI      = "parkfinder://bands"
	bandsMIMEType = "application/json"
)

type bandDefinition struct {
	Key              bands.Key `json:"key"`
	LowerBoundMeters float64   `json:"lower_bound_exclusive_meters"`
	UpperBoundMeters float64   `json:"upper_bound_inclusive_meters"`
}

// BandResources describes the distance bands used by find_parking and
// normalize_results.
type BandResources struct{}

func NewBandResources() *BandResources {
	return &BandResources{}
}

func (r *BandResources) Resource() mcp.Resource {
	return mcp.NewResource(
		BandsURI,
		"Distance bands",
		mcp.WithResourceDescription("The four distance bands parking results are grouped into, in display order"),
		mcp.WithMIMEType(bandsMIMEType),
	)
}

func (r *BandResources) ReadHandler(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	defs := make([]bandDefinition, 0, len(bands.Keys()))
	lower := 0.0
	for _, k := range bands.Keys() {
		defs = append(defs, bandDefinition{Key: k, LowerBoundMeters: lower, UpperBoundMeters: k.UpperBound()})
		lower = k.UpperBound()
	}
	body, err := json.Marshal(defs)
	if err != nil {
		return nil, err
	}

	uri := BandsURI
	if request.Params.URI != "" {
		uri = request.Params.URI
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: bandsMIMEType, Text: string(body)},
	}, nil
}
