package melbourne

import "github.com/placxborcx/Onboarding-MainPage/internal/geo"

// Page is one page of an Explore v2.1 records response.
type Page[T any] struct {
	TotalCount int `json:"total_count"`
	Results    []T `json:"results"`
}

// Sensor is one in-ground bay sensor reading.
type Sensor struct {
	LastUpdated       string    `json:"lastupdated"`
	StatusTimestamp   string    `json:"status_timestamp"`
	ZoneNumber        *int      `json:"zone_number"`
	StatusDescription string    `json:"status_description"`
	KerbsideID        *int      `json:"kerbsideid"`
	Location          *Location `json:"location"`
}

// Location is the sensor geo point. Either half may be missing.
type Location struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Point returns the sensor coordinate. ok is false when it is incomplete.
func (s Sensor) Point() (geo.Point, bool) {
	if s.Location == nil || s.Location.Lat == nil || s.Location.Lon == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *s.Location.Lat, Lon: *s.Location.Lon}, true
}

// SignPlate is one restriction sign in a parking zone.
type SignPlate struct {
	ParkingZone           int    `json:"parkingzone"`
	RestrictionDays       string `json:"restriction_days"`
	TimeRestrictionStart  string `json:"time_restriction_start"`
	TimeRestrictionFinish string `json:"time_restriction_finish"`
	RestrictionDisplay    string `json:"restriction_display"`
}

// ZoneSegment links a parking zone to the street segment it covers.
type ZoneSegment struct {
	ParkingZone int    `json:"parkingzone"`
	OnStreet    string `json:"onstreet"`
	StreetFrom  string `json:"streetfrom"`
	StreetTo    string `json:"streetto"`
	SegmentID   int    `json:"segment_id"`
}

// Description renders the segment as "Onstreet between From and To".
func (z ZoneSegment) Description() string {
	switch {
	case z.OnStreet == "":
		return ""
	case z.StreetFrom != "" && z.StreetTo != "":
		return z.OnStreet + " between " + z.StreetFrom + " and " + z.StreetTo
	default:
		return z.OnStreet
	}
}
