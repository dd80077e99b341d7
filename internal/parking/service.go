// Package parking answers "where can I park near here" from the City of
// Melbourne bay sensor feed, grouped per zone or listed per bay.
package parking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking/melbourne"
	"github.com/placxborcx/Onboarding-MainPage/internal/telemetry"
)

var (
	// ErrCenterRequired is returned when a query has neither text nor coordinates.
	ErrCenterRequired = errors.New("provide q (address) or lat and lon")
	// ErrInvalidCenter is returned for out-of-range coordinates.
	ErrInvalidCenter = errors.New("invalid coordinates")
	// ErrInvalidMode is returned by ParseMode for unknown modes.
	ErrInvalidMode = errors.New("mode must be zone or bay")
	// ErrUpstream wraps failures of the sensor feed.
	ErrUpstream = errors.New("parking data unavailable")
)

// Messages reported with a nearby response.
const (
	MessageOK      = "OK"
	MessageNoSpace = "No carpark available"
)

// DefaultRadiusMeters is the sensor search radius.
const DefaultRadiusMeters = 1000

// Mode selects how sensors are reported.
type Mode string

const (
	// ModeZone aggregates sensors per parking zone.
	ModeZone Mode = "zone"
	// ModeBay reports one item per sensor.
	ModeBay Mode = "bay"
)

// ParseMode maps a query parameter to a Mode. Empty means fallback.
func ParseMode(s string, fallback Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return fallback, nil
	case ModeZone:
		return ModeZone, nil
	case ModeBay:
		return ModeBay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Geocoder resolves free text to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocoding.GeocodeResult, error)
}

// Source provides the open data feeds.
type Source interface {
	Sensors(ctx context.Context, center geo.Point, radiusMeters float64) ([]melbourne.Sensor, error)
	SignPlates(ctx context.Context, zones []int) ([]melbourne.SignPlate, error)
	ZoneSegments(ctx context.Context, zones []int) ([]melbourne.ZoneSegment, error)
}

// Query is one nearby search. Center wins over Text when both are set.
type Query struct {
	Text   string
	Center *geo.Point
	Mode   Mode
}

// Service runs nearby searches.
type Service struct {
	source       Source
	geocoder     Geocoder
	logger       zerolog.Logger
	radiusMeters float64
}

// NewService creates a parking service. geocoder may be nil, in which case
// only coordinate queries are answered.
func NewService(source Source, geocoder Geocoder, logger zerolog.Logger, radiusMeters float64) *Service {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Service{
		source:       source,
		geocoder:     geocoder,
		logger:       logger,
		radiusMeters: radiusMeters,
	}
}

// Nearby finds sensors around the query center and reports them per q.Mode
// (ModeZone when unset), nearest first.
func (s *Service) Nearby(ctx context.Context, q Query) (*NearbyResponse, error) {
	if q.Mode == "" {
		q.Mode = ModeZone
	}

	ctx, span := telemetry.Tracer().Start(ctx, "parking.Nearby")
	defer span.End()

	center, err := s.resolveCenter(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("parking.mode", string(q.Mode)),
		attribute.Float64("parking.lat", center.Lat),
		attribute.Float64("parking.lon", center.Lon),
	)

	sensors, err := s.source.Sensors(ctx, center, s.radiusMeters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Str("center", center.String()).Msg("sensor fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	readings := collectReadings(center, sensors)
	zones := s.enrich(ctx, zoneNumbers(readings))

	resp := &NearbyResponse{
		Query:  QueryEcho{Lat: center.Lat, Lon: center.Lon},
		Mode:   q.Mode,
		Center: center,
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		resp.Query.Location = &text
	}

	switch q.Mode {
	case ModeBay:
		resp.Bays = bayItems(readings, zones)
		resp.Total = len(resp.Bays)
	default:
		resp.Zones = zoneItems(readings, zones)
		resp.Total = len(resp.Zones)
	}
	resp.Message = MessageOK
	if resp.Total == 0 {
		resp.Message = MessageNoSpace
	}

	span.SetAttributes(attribute.Int("parking.sensors", len(sensors)), attribute.Int("parking.results", resp.Total))
	s.logger.Debug().
		Str("center", center.String()).
		Int("sensors", len(sensors)).
		Int("results", resp.Total).
		Msg("nearby search complete")
	return resp, nil
}

// Bands runs a nearby search (ModeBay when unset) and groups the results into
// distance bands.
func (s *Service) Bands(ctx context.Context, q Query) (bands.Result, error) {
	if q.Mode == "" {
		q.Mode = ModeBay
	}
	resp, err := s.Nearby(ctx, q)
	if err != nil {
		return bands.Result{}, err
	}

	res := bands.NormalizeValue(resp)
	RecordBands(res)
	return res, nil
}

// RecordBands counts the items kept per band and the items dropped.
func RecordBands(res bands.Result) {
	for _, k := range bands.Keys() {
		if n := len(res.Bands.Get(k)); n > 0 {
			metrics.NormalizedBaysTotal.WithLabelValues(string(k)).Add(float64(n))
		}
	}
	if res.Dropped > 0 {
		metrics.NormalizedBaysTotal.WithLabelValues("dropped").Add(float64(res.Dropped))
	}
}

func (s *Service) resolveCenter(ctx context.Context, q Query) (geo.Point, error) {
	if q.Center != nil {
		if !q.Center.Valid() {
			return geo.Point{}, fmt.Errorf("%w: %s", ErrInvalidCenter, q.Center)
		}
		return *q.Center, nil
	}

	text := strings.TrimSpace(q.Text)
	if text == "" || s.geocoder == nil {
		return geo.Point{}, ErrCenterRequired
	}
	res, err := s.geocoder.Geocode(ctx, text)
	if err != nil {
		return geo.Point{}, fmt.Errorf("could not geocode %q: %w", text, err)
	}
	return res.Point(), nil
}

// enrich fetches sign plates and street segments for zones in parallel.
// Failures are logged and leave the zones without enrichment.
func (s *Service) enrich(ctx context.Context, zones []int) map[int]Enrichment {
	out := make(map[int]Enrichment, len(zones))
	if len(zones) == 0 {
		return out
	}

	var (
		plates   []melbourne.SignPlate
		segments []melbourne.ZoneSegment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plates, err = s.source.SignPlates(gctx, zones)
		return err
	})
	g.Go(func() error {
		var err error
		segments, err = s.source.ZoneSegments(gctx, zones)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Int("zones", len(zones)).Msg("zone enrichment unavailable")
		return out
	}

	for _, seg := range segments {
		e := out[seg.ParkingZone]
		if e.Street == nil && seg.OnStreet != "" {
			street := seg.OnStreet
			desc := seg.Description()
			e.Street = &street
			e.SegmentDescription = &desc
		}
		out[seg.ParkingZone] = e
	}
	for _, p := range plates {
		e := out[p.ParkingZone]
		r := ParseRestriction(p.RestrictionDisplay)
		e.Restrictions = append(e.Restrictions, r)
		if r.Metered {
			metered := true
			e.Metered = &metered
		}
		if e.MaxStayMinutes == nil && r.Minutes > 0 {
			label, minutes := r.Label, r.Minutes
			e.MaxStayLabel = &label
			e.MaxStayMinutes = &minutes
		}
		out[p.ParkingZone] = e
	}
	return out
}

// reading is one sensor with a usable location.
type reading struct {
	sensor    melbourne.Sensor
	point     geo.Point
	distanceM float64
}

func collectReadings(center geo.Point, sensors []melbourne.Sensor) []reading {
	out := make([]reading, 0, len(sensors))
	for _, sensor := range sensors {
		p, ok := sensor.Point()
		if !ok {
			continue
		}
		out = append(out, reading{
			sensor:    sensor,
			point:     p,
			distanceM: math.Round(geo.HaversineMeters(center, p)*10) / 10,
		})
	}
	return out
}

func zoneNumbers(readings []reading) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range readings {
		if z := r.sensor.ZoneNumber; z != nil && *z != 0 && !seen[*z] {
			seen[*z] = true
			out = append(out, *z)
		}
	}
	sort.Ints(out)
	return out
}

// groupKey is the zone number, or kerb_<kerbsideid> for sensors outside a zone.
func groupKey(s melbourne.Sensor) string {
	if s.ZoneNumber != nil && *s.ZoneNumber != 0 {
		return strconv.Itoa(*s.ZoneNumber)
	}
	if s.KerbsideID != nil {
		return "kerb_" + strconv.Itoa(*s.KerbsideID)
	}
	return "kerb_unknown"
}

func isUnoccupied(status string) bool {
	return strings.EqualFold(status, bands.StatusUnoccupied)
}
