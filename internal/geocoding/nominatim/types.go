package nominatim

import (
	"strconv"
	"strings"
)

// SearchOptions contains optional parameters for geocoding searches.
type SearchOptions struct {
	// CountryCodes limits results to specific countries (comma-separated ISO 3166-1 alpha-2 codes, e.g. "au")
	CountryCodes string
	// Limit controls the maximum number of results (default: 1, max: 50)
	Limit int
	// Viewbox biases results toward a bounding box; Bounded restricts them to it
	Viewbox *Viewbox
	Bounded bool
}

// Viewbox defines a geographic bounding box.
type Viewbox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// SearchResult is a single result from the search endpoint (format=jsonv2).
type SearchResult struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	AddressType string  `json:"addresstype"`
	Importance  float64 `json:"importance"`
	OSMID       int64   `json:"osm_id"`
	OSMType     string  `json:"osm_type"`
	// Address contains structured address components if included
	Address *Address `json:"address,omitempty"`
}

// Coordinates parses Lat and Lon. ok is false when either is not a number.
func (r SearchResult) Coordinates() (lat, lon float64, ok bool) {
	return parseLatLon(r.Lat, r.Lon)
}

// PrimaryName is the feature's own name, falling back to the first segment
// of the display name.
func (r SearchResult) PrimaryName() string {
	if r.Name != "" {
		return r.Name
	}
	head, _, _ := strings.Cut(r.DisplayName, ",")
	return strings.TrimSpace(head)
}

// ReverseResult represents a reverse geocoding result (coordinates -> address).
type ReverseResult struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	OSMID       int64   `json:"osm_id"`
	OSMType     string  `json:"osm_type"`
	Address     Address `json:"address"`
	// Error is set instead of the fields above when nothing is found
	Error string `json:"error,omitempty"`
}

// Address contains structured address components from Nominatim.
type Address struct {
	HouseNumber   string `json:"house_number,omitempty"`
	Road          string `json:"road,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	Village       string `json:"village,omitempty"`
	Municipality  string `json:"municipality,omitempty"`
	County        string `json:"county,omitempty"`
	State         string `json:"state,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// Locality returns the most specific settlement name present.
func (a Address) Locality() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.Municipality, a.Suburb} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Context lists the broader areas a feature sits in, most specific first.
func (a Address) Context() []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range []string{a.Suburb, a.City, a.Town, a.Village, a.State, a.Country} {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
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
