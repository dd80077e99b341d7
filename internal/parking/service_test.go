package parking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking/melbourne"
)

var center = geo.Point{Lat: -37.8136, Lon: 144.9631}

func intp(v int) *int { return &v }

func sensor(kerb int, zone *int, status string, lat, lon float64) melbourne.Sensor {
	return melbourne.Sensor{
		KerbsideID:        intp(kerb),
		ZoneNumber:        zone,
		StatusDescription: status,
		StatusTimestamp:   "2026-03-01T09:00:00+00:00",
		LastUpdated:       "2026-03-01T09:05:00+00:00",
		Location:          &melbourne.Location{Lat: &lat, Lon: &lon},
	}
}

type fakeSource struct {
	sensors   []melbourne.Sensor
	sensorErr error
	plates    []melbourne.SignPlate
	segments  []melbourne.ZoneSegment
	enrichErr error
	gotCenter geo.Point
	gotRadius float64
	gotZones  []int
}

func (f *fakeSource) Sensors(_ context.Context, c geo.Point, radius float64) ([]melbourne.Sensor, error) {
	f.gotCenter, f.gotRadius = c, radius
	return f.sensors, f.sensorErr
}

func (f *fakeSource) SignPlates(_ context.Context, zones []int) ([]melbourne.SignPlate, error) {
	f.gotZones = zones
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	return f.plates, nil
}

func (f *fakeSource) ZoneSegments(_ context.Context, _ []int) ([]melbourne.ZoneSegment, error) {
	return f.segments, nil
}

type fakeGeocoder struct {
	result *geocoding.GeocodeResult
	err    error
}

func (f fakeGeocoder) Geocode(context.Context, string) (*geocoding.GeocodeResult, error) {
	return f.result, f.err
}

func fixtureSource() *fakeSource {
	return &fakeSource{
		sensors: []melbourne.Sensor{
			sensor(1, intp(7001), "Unoccupied", -37.8140, 144.9631),
			sensor(2, intp(7001), "Present", -37.8142, 144.9633),
			sensor(3, intp(7002), "unoccupied", -37.8100, 144.9631),
			sensor(4, nil, "Present", -37.8137, 144.9631),
			{KerbsideID: intp(5), StatusDescription: "Unoccupied"},
		},
		plates: []melbourne.SignPlate{
			{ParkingZone: 7001, RestrictionDisplay: "2P MTR"},
			{ParkingZone: 7001, RestrictionDisplay: "4P"},
		},
		segments: []melbourne.ZoneSegment{
			{ParkingZone: 7001, OnStreet: "Swanston Street", StreetFrom: "Collins Street", StreetTo: "Little Collins Street"},
		},
	}
}

func TestNearby_ZoneMode(t *testing.T) {
	src := fixtureSource()
	svc := NewService(src, nil, zerolog.Nop(), 0)

	resp, err := svc.Nearby(context.Background(), Query{Center: &center})
	require.NoError(t, err)

	assert.Equal(t, float64(DefaultRadiusMeters), src.gotRadius)
	assert.Equal(t, []int{7001, 7002}, src.gotZones)
	assert.Equal(t, ModeZone, resp.Mode)
	assert.Equal(t, MessageOK, resp.Message)
	require.Len(t, resp.Zones, 3)
	assert.Equal(t, 3, resp.Total)

	kerb := resp.Zones[0]
	assert.Equal(t, "Zone kerb_4", kerb.Name)
	assert.Nil(t, kerb.ZoneNumber)
	assert.Equal(t, "0.01 km", kerb.Distance)

	z := resp.Zones[1]
	assert.Equal(t, "Zone 7001", z.Name)
	assert.Equal(t, 7001, *z.ZoneNumber)
	assert.Equal(t, 1, z.AvailableSpaces)
	assert.Equal(t, 2, z.TotalSpaces)
	assert.Equal(t, -37.8141, z.Coordinates.Lat)
	assert.Equal(t, 144.9632, z.Coordinates.Lng)
	require.NotNil(t, z.Street)
	assert.Equal(t, "Swanston Street", *z.Street)
	assert.Equal(t, "Swanston Street between Collins Street and Little Collins Street", *z.Address)
	assert.Equal(t, 120, *z.MaxStayMinutes)
	assert.True(t, *z.Metered)
	assert.Len(t, z.Restrictions, 2)

	assert.Equal(t, 1, resp.Zones[2].AvailableSpaces, "status match is case-insensitive")
	assert.Nil(t, resp.Zones[2].Street)
}

func TestNearby_JSONShape(t *testing.T) {
	svc := NewService(fixtureSource(), nil, zerolog.Nop(), 1000)
	resp, err := svc.Nearby(context.Background(), Query{Center: &center})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]any{"location": nil, "lat": center.Lat, "lon": center.Lon}, decoded["query"])
	assert.Equal(t, "OK", decoded["message"])

	results := decoded["results"].([]any)
	first := results[0].(map[string]any)
	assert.Contains(t, first, "price")
	assert.Nil(t, first["price"])
	assert.Contains(t, first, "address")
	assert.Equal(t, map[string]any{"lat": -37.8137, "lng": 144.9631}, first["coordinates"])
}

func TestNearby_BayMode(t *testing.T) {
	svc := NewService(fixtureSource(), nil, zerolog.Nop(), 1000)

	resp, err := svc.Nearby(context.Background(), Query{Center: &center, Mode: ModeBay})
	require.NoError(t, err)
	require.Len(t, resp.Bays, 4, "sensor without location dropped")

	for i := 1; i < len(resp.Bays); i++ {
		assert.LessOrEqual(t, resp.Bays[i-1].DistanceM, resp.Bays[i].DistanceM)
	}
	first := resp.Bays[0]
	assert.Equal(t, 4, *first.ID)
	assert.Equal(t, 11.1, first.DistanceM)
	assert.Nil(t, first.ZoneNumber)
}

func TestNearby_Empty(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, zerolog.Nop(), 1000)

	resp, err := svc.Nearby(context.Background(), Query{Center: &center})
	require.NoError(t, err)
	assert.Equal(t, MessageNoSpace, resp.Message)
	assert.Zero(t, resp.Total)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"results":[]`)
}

func TestNearby_CenterResolution(t *testing.T) {
	src := fixtureSource()
	geocoder := fakeGeocoder{result: &geocoding.GeocodeResult{Latitude: -37.81, Longitude: 144.96}}
	svc := NewService(src, geocoder, zerolog.Nop(), 1000)
	ctx := context.Background()

	resp, err := svc.Nearby(ctx, Query{Text: " Melbourne Central "})
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: -37.81, Lon: 144.96}, src.gotCenter)
	require.NotNil(t, resp.Query.Location)
	assert.Equal(t, "Melbourne Central", *resp.Query.Location)

	_, err = svc.Nearby(ctx, Query{})
	assert.ErrorIs(t, err, ErrCenterRequired)

	_, err = svc.Nearby(ctx, Query{Center: &geo.Point{Lat: 120, Lon: 0}})
	assert.ErrorIs(t, err, ErrInvalidCenter)

	noGeo := NewService(src, nil, zerolog.Nop(), 1000)
	_, err = noGeo.Nearby(ctx, Query{Text: "Melbourne Central"})
	assert.ErrorIs(t, err, ErrCenterRequired)

	failing := NewService(src, fakeGeocoder{err: geocoding.ErrNoResults}, zerolog.Nop(), 1000)
	_, err = failing.Nearby(ctx, Query{Text: "Atlantis"})
	assert.ErrorIs(t, err, geocoding.ErrNoResults)
}

func TestNearby_Errors(t *testing.T) {
	svc := NewService(&fakeSource{sensorErr: errors.New("503")}, nil, zerolog.Nop(), 1000)
	_, err := svc.Nearby(context.Background(), Query{Center: &center})
	assert.ErrorIs(t, err, ErrUpstream)

	src := fixtureSource()
	src.enrichErr = errors.New("sign plates down")
	svc = NewService(src, nil, zerolog.Nop(), 1000)
	resp, err := svc.Nearby(context.Background(), Query{Center: &center})
	require.NoError(t, err, "enrichment is best effort")
	assert.Len(t, resp.Zones, 3)
	for _, z := range resp.Zones {
		assert.Nil(t, z.Street)
	}
}

func TestBands(t *testing.T) {
	svc := NewService(fixtureSource(), nil, zerolog.Nop(), 1000)

	res, err := svc.Bands(context.Background(), Query{Center: &center})
	require.NoError(t, err)
	require.NotNil(t, res.Center)
	assert.Equal(t, center, *res.Center)
	assert.Equal(t, 4, res.Bands.Len())

	within := res.Bands.Get(bands.Within100m)
	require.Len(t, within, 3)
	assert.Equal(t, "4", *within[0].ID)
	assert.JSONEq(t, "7001", string(within[1].ZoneNumber))
	assert.JSONEq(t, `"Swanston Street"`, string(within[1].Street))

	far := res.Bands.Get(bands.From200To500m)
	require.Len(t, far, 1)
	assert.Equal(t, "unoccupied", *far[0].StatusDescription)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("", ModeBay)
	require.NoError(t, err)
	assert.Equal(t, ModeBay, m)

	m, err = ParseMode(" ZONE ", ModeBay)
	require.NoError(t, err)
	assert.Equal(t, ModeZone, m)

	_, err = ParseMode("street", ModeZone)
	assert.ErrorIs(t, err, ErrInvalidMode)
}
