package geocoding

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding/mapbox"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding/nominatim"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

// Provider is an upstream geocoder reduced to what the service needs.
type Provider interface {
	// Name identifies the provider in metrics, logs and cache keys.
	Name() string
	// Attribution is the notice that must accompany results.
	Attribution() string
	Candidates(ctx context.Context, query string, limit int) ([]suggest.Candidate, error)
	Reverse(ctx context.Context, p geo.Point) (*ReverseResult, error)
}

// ReverseResult is the address found at a coordinate.
type ReverseResult struct {
	Point       geo.Point `json:"point"`
	DisplayName string    `json:"displayName"`
	Road        string    `json:"road,omitempty"`
	Locality    string    `json:"locality,omitempty"`
	Postcode    string    `json:"postcode,omitempty"`
	Source      string    `json:"source"`
}

// poiClasses are the Nominatim classes whose type reads as a category label.
var poiClasses = map[string]bool{
	"amenity":          true,
	"shop":             true,
	"tourism":          true,
	"leisure":          true,
	"railway":          true,
	"public_transport": true,
	"aeroway":          true,
	"historic":         true,
	"office":           true,
}

// NominatimProvider adapts the Nominatim client.
type NominatimProvider struct {
	client       *nominatim.Client
	countryCodes string
	viewbox      *nominatim.Viewbox
}

// NewNominatimProvider biases searches to a box of radiusKm around ref.
func NewNominatimProvider(client *nominatim.Client, countryCodes string, ref geo.Point, radiusKm float64) *NominatimProvider {
	dLat := radiusKm / 111.195
	dLon := dLat / cosDeg(ref.Lat)
	return &NominatimProvider{
		client:       client,
		countryCodes: countryCodes,
		viewbox: &nominatim.Viewbox{
			MinLat: ref.Lat - dLat, MaxLat: ref.Lat + dLat,
			MinLon: ref.Lon - dLon, MaxLon: ref.Lon + dLon,
		},
	}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

func (p *NominatimProvider) Attribution() string {
	return "Data © OpenStreetMap contributors, ODbL 1.0. https://osm.org/copyright"
}

func (p *NominatimProvider) Candidates(ctx context.Context, query string, limit int) ([]suggest.Candidate, error) {
	results, err := p.client.Search(ctx, query, nominatim.SearchOptions{
		CountryCodes: p.countryCodes,
		Limit:        limit,
		Viewbox:      p.viewbox,
	})
	if err != nil {
		return nil, err
	}

	out := make([]suggest.Candidate, 0, len(results))
	for _, r := range results {
		c := suggest.Candidate{
			ID:    "osm:" + r.OSMType + ":" + strconv.FormatInt(r.OSMID, 10),
			Name:  r.PrimaryName(),
			Label: r.DisplayName,
		}
		if poiClasses[r.Category] {
			c.Category = strings.ReplaceAll(r.Type, "_", " ")
		}
		if r.Address != nil {
			c.Context = r.Address.Context()
		}
		if lat, lon, ok := r.Coordinates(); ok {
			c.Point = &geo.Point{Lat: lat, Lon: lon}
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *NominatimProvider) Reverse(ctx context.Context, pt geo.Point) (*ReverseResult, error) {
	r, err := p.client.Reverse(ctx, pt.Lat, pt.Lon)
	if err != nil {
		return nil, err
	}
	lat, lon, ok := parseLatLon(r.Lat, r.Lon)
	if !ok {
		return nil, fmt.Errorf("invalid coordinates in nominatim result: %q,%q", r.Lat, r.Lon)
	}
	return &ReverseResult{
		Point:       geo.Point{Lat: lat, Lon: lon},
		DisplayName: r.DisplayName,
		Road:        r.Address.Road,
		Locality:    r.Address.Locality(),
		Postcode:    r.Address.Postcode,
		Source:      p.Name(),
	}, nil
}

// MapboxProvider adapts the Mapbox places client.
type MapboxProvider struct {
	client    *mapbox.Client
	country   string
	proximity geo.Point
}

// NewMapboxProvider biases searches toward ref.
func NewMapboxProvider(client *mapbox.Client, country string, ref geo.Point) *MapboxProvider {
	return &MapboxProvider{client: client, country: country, proximity: ref}
}

func (p *MapboxProvider) Name() string { return "mapbox" }

func (p *MapboxProvider) Attribution() string { return "© Mapbox © OpenStreetMap" }

func (p *MapboxProvider) Candidates(ctx context.Context, query string, limit int) ([]suggest.Candidate, error) {
	fc, err := p.client.Forward(ctx, query, mapbox.ForwardOptions{
		Proximity: &mapbox.LatLon{Lat: p.proximity.Lat, Lon: p.proximity.Lon},
		Limit:     limit,
		Country:   p.country,
	})
	if err != nil {
		return nil, err
	}

	out := make([]suggest.Candidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		c := suggest.Candidate{
			ID:       f.ID,
			Name:     f.Text,
			Label:    f.PlaceName,
			Category: f.Category(),
			Context:  f.ContextNames(),
		}
		if lat, lon, ok := f.Coordinates(); ok {
			c.Point = &geo.Point{Lat: lat, Lon: lon}
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *MapboxProvider) Reverse(ctx context.Context, pt geo.Point) (*ReverseResult, error) {
	fc, err := p.client.Reverse(ctx, pt.Lat, pt.Lon)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoResults
	}

	f := fc.Features[0]
	res := &ReverseResult{Point: pt, DisplayName: f.PlaceName, Source: p.Name()}
	if lat, lon, ok := f.Coordinates(); ok {
		res.Point = geo.Point{Lat: lat, Lon: lon}
	}
	if len(f.PlaceType) > 0 && f.PlaceType[0] == "address" {
		res.Road = f.Text
	}
	for _, c := range f.Context {
		switch {
		case strings.HasPrefix(c.ID, "place."):
			res.Locality = c.Text
		case strings.HasPrefix(c.ID, "postcode."):
			res.Postcode = c.Text
		}
	}
	return res, nil
}

func parseLatLon(latStr, lonStr string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}
