package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "content is not text")
	return text.Text
}

type fakeFinder struct {
	got parking.Query
	err error
}

func (f *fakeFinder) Bands(_ context.Context, q parking.Query) (bands.Result, error) {
	f.got = q
	if f.err != nil {
		return bands.Result{}, f.err
	}
	center := geo.Point{Lat: -37.81, Lon: 144.96}
	return bands.Result{Bands: bands.NewBandSet(), Center: &center}, nil
}

func TestFindParking(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
		want    parking.Query
	}{
		{name: "address", args: map[string]any{"address": " Collins St "}, want: parking.Query{Text: "Collins St", Mode: parking.ModeBay}},
		{name: "coordinates", args: map[string]any{"latitude": -37.8, "longitude": 144.9, "mode": "zone"}, want: parking.Query{Center: &geo.Point{Lat: -37.8, Lon: 144.9}, Mode: parking.ModeZone}},
		{name: "nothing", args: map[string]any{}, wantErr: "provide address"},
		{name: "half a pair", args: map[string]any{"latitude": -37.8}, wantErr: "supplied together"},
		{name: "bad mode", args: map[string]any{"address": "x", "mode": "street"}, wantErr: "invalid mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &fakeFinder{}
			res, err := NewParkingTools(finder).FindParkingHandler(context.Background(), callRequest("find_parking", tt.args))
			require.NoError(t, err)

			text := resultText(t, res)
			if tt.wantErr != "" {
				assert.True(t, res.IsError)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			assert.False(t, res.IsError, text)
			assert.Equal(t, tt.want, finder.got)
			assert.Contains(t, text, `"within_100m":[]`)
		})
	}
}

func TestFindParking_NotGeocoded(t *testing.T) {
	finder := &fakeFinder{err: geocoding.ErrNoResults}
	res, err := NewParkingTools(finder).FindParkingHandler(context.Background(), callRequest("find_parking", map[string]any{"address": "Nowhere"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "could not geocode 'Nowhere'")
}

func TestFindParking_NotConfigured(t *testing.T) {
	var tools *ParkingTools
	res, err := tools.FindParkingHandler(context.Background(), callRequest("find_parking", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNormalizeResults(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"coordinates": map[string]any{"lat": -37.81, "lng": 144.96}, "distance": "300 m"},
		},
	}
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)

	for name, arg := range map[string]any{"object": payload, "string": string(encoded)} {
		t.Run(name, func(t *testing.T) {
			res, err := NewParkingTools(nil).NormalizeResultsHandler(context.Background(),
				callRequest("normalize_results", map[string]any{"payload": arg}))
			require.NoError(t, err)
			require.False(t, res.IsError)

			var out struct {
				Bands map[string][]map[string]any `json:"bands"`
			}
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
			assert.Len(t, out.Bands["200_to_500m"], 1)
			assert.Equal(t, 300.0, out.Bands["200_to_500m"][0]["distanceMeters"])
		})
	}
}

func TestNormalizeResults_MissingPayload(t *testing.T) {
	res, err := NewParkingTools(nil).NormalizeResultsHandler(context.Background(), callRequest("normalize_results", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

type fakeGeocoder struct {
	suggestErr error
}

func (f fakeGeocoder) Suggest(context.Context, string) ([]suggest.Suggestion, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return []suggest.Suggestion{{ID: "1", Label: "Lygon Street, Carlton", PrimaryText: "Lygon Street"}}, nil
}

func (f fakeGeocoder) Geocode(_ context.Context, q string) (*geocoding.GeocodeResult, error) {
	if q == "Nowhere" {
		return nil, geocoding.ErrNoResults
	}
	return &geocoding.GeocodeResult{Latitude: -37.81, Longitude: 144.96, DisplayName: q, Source: "nominatim"}, nil
}

func (f fakeGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (*geocoding.ReverseResult, error) {
	return &geocoding.ReverseResult{Point: geo.Point{Lat: lat, Lon: lon}, DisplayName: "Flinders St", Road: "Flinders Street"}, nil
}

func (fakeGeocoder) Attribution() string { return "Data © OpenStreetMap contributors" }

func TestSuggestLocations(t *testing.T) {
	tools := NewGeocodingTools(fakeGeocoder{})

	res, err := tools.SuggestLocationsHandler(context.Background(), callRequest("suggest_locations", map[string]any{"query": "lygon"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Lygon Street, Carlton")
	assert.Contains(t, text, "OpenStreetMap")

	res, err = tools.SuggestLocationsHandler(context.Background(), callRequest("suggest_locations", map[string]any{"query": "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSuggestLocations_ProviderFailure(t *testing.T) {
	tools := NewGeocodingTools(fakeGeocoder{suggestErr: errors.New("503")})
	res, err := tools.SuggestLocationsHandler(context.Background(), callRequest("suggest_locations", map[string]any{"query": "lygon"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGeocodeAddress(t *testing.T) {
	tools := NewGeocodingTools(fakeGeocoder{})

	res, err := tools.GeocodeAddressHandler(context.Background(), callRequest("geocode_address", map[string]any{"address": "Collins St"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"display_name":"Collins St"`)

	res, err = tools.GeocodeAddressHandler(context.Background(), callRequest("geocode_address", map[string]any{"address": "Nowhere"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no results found")
}

func TestReverseGeocode(t *testing.T) {
	tools := NewGeocodingTools(fakeGeocoder{})

	res, err := tools.ReverseGeocodeHandler(context.Background(), callRequest("reverse_geocode", map[string]any{"latitude": -37.81, "longitude": 144.96}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"road":"Flinders Street"`)

	res, err = tools.ReverseGeocodeHandler(context.Background(), callRequest("reverse_geocode", map[string]any{"latitude": 95.0, "longitude": 144.96}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
