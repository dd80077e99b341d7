package parking

import (
	"encoding/json"
	"sort"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
)

// QueryEcho repeats the resolved query in a response.
type QueryEcho struct {
	Location *string `json:"location"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Coordinates is a lat/lng pair as the map widget expects it.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Enrichment is what the sign plate and street segment datasets add to a zone.
type Enrichment struct {
	Street             *string       `json:"street,omitempty"`
	SegmentDescription *string       `json:"segmentDescription,omitempty"`
	MaxStayLabel       *string       `json:"maxStayLabel,omitempty"`
	MaxStayMinutes     *int          `json:"maxStayMinutes,omitempty"`
	Metered            *bool         `json:"metered,omitempty"`
	Restrictions       []Restriction `json:"restrictions,omitempty"`
}

// ZoneItem aggregates the sensors of one zone.
type ZoneItem struct {
	Name            string      `json:"name"`
	ZoneNumber      *int        `json:"zoneNumber"`
	AvailableSpaces int         `json:"availableSpaces"`
	TotalSpaces     int         `json:"totalSpaces"`
	Address         *string     `json:"address"`
	Distance        string      `json:"distance"`
	Price           *string     `json:"price"`
	Coordinates     Coordinates `json:"coordinates"`
	Enrichment

	distanceM float64
}

// BayItem is a single sensor.
type BayItem struct {
	ID                *int    `json:"id"`
	DistanceM         float64 `json:"distance_m"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	StatusDescription string  `json:"status_description"`
	StatusTimestamp   string  `json:"status_timestamp"`
	LastUpdated       string  `json:"lastupdated"`
	ZoneNumber        *int    `json:"zoneNumber"`
	Enrichment
}

// NearbyResponse is the nearby search result. Results holds Zones or Bays
// depending on Mode.
type NearbyResponse struct {
	Query   QueryEcho
	Mode    Mode
	Zones   []ZoneItem
	Bays    []BayItem
	Total   int
	Message string
	Center  geo.Point
}

// MarshalJSON emits {query, mode, results, total, message, center}.
func (r NearbyResponse) MarshalJSON() ([]byte, error) {
	var results any = nonNil(r.Zones)
	if r.Mode == ModeBay {
		results = nonNil(r.Bays)
	}
	return json.Marshal(struct {
		Query   QueryEcho `json:"query"`
		Mode    Mode      `json:"mode"`
		Results any       `json:"results"`
		Total   int       `json:"total"`
		Message string    `json:"message"`
		Center  geo.Point `json:"center"`
	}{r.Query, r.Mode, results, r.Total, r.Message, r.Center})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type zoneGroup struct {
	key       string
	zone      *int
	total     int
	available int
	latSum    float64
	lonSum    float64
	minDist   float64
}

func zoneItems(readings []reading, enrichment map[int]Enrichment) []ZoneItem {
	var order []*zoneGroup
	groups := make(map[string]*zoneGroup)
	for _, r := range readings {
		key := groupKey(r.sensor)
		g, ok := groups[key]
		if !ok {
			g = &zoneGroup{key: key, minDist: r.distanceM}
			if z := r.sensor.ZoneNumber; z != nil && *z != 0 {
				zone := *z
				g.zone = &zone
			}
			groups[key] = g
			order = append(order, g)
		}
		g.total++
		if isUnoccupied(r.sensor.StatusDescription) {
			g.available++
		}
		g.latSum += r.point.Lat
		g.lonSum += r.point.Lon
		g.minDist = min(g.minDist, r.distanceM)
	}

	out := make([]ZoneItem, 0, len(order))
	for _, g := range order {
		mean := geo.Point{Lat: g.latSum / float64(g.total), Lon: g.lonSum / float64(g.total)}.Rounded(6)
		item := ZoneItem{
			Name:            "Zone " + g.key,
			ZoneNumber:      g.zone,
			AvailableSpaces: g.available,
			TotalSpaces:     g.total,
			Distance:        geo.FormatKm(g.minDist),
			Coordinates:     Coordinates{Lat: mean.Lat, Lng: mean.Lon},
			distanceM:       g.minDist,
		}
		if g.zone != nil {
			item.Enrichment = enrichment[*g.zone]
			item.Address = item.SegmentDescription
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].distanceM < out[j].distanceM })
	return out
}

func bayItems(readings []reading, enrichment map[int]Enrichment) []BayItem {
	out := make([]BayItem, 0, len(readings))
	for _, r := range readings {
		item := BayItem{
			ID:                r.sensor.KerbsideID,
			DistanceM:         r.distanceM,
			Lat:               r.point.Lat,
			Lon:               r.point.Lon,
			StatusDescription: r.sensor.StatusDescription,
			StatusTimestamp:   r.sensor.StatusTimestamp,
			LastUpdated:       r.sensor.LastUpdated,
		}
		if z := r.sensor.ZoneNumber; z != nil && *z != 0 {
			zone := *z
			item.ZoneNumber = &zone
			item.Enrichment = enrichment[zone]
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	return out
}
