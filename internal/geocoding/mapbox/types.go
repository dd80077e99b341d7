package mapbox

import "strings"

// ForwardOptions contains optional parameters for forward geocoding.
type ForwardOptions struct {
	// Proximity biases results toward a coordinate
	Proximity *LatLon
	// Limit is the maximum number of features (default 1, max 10)
	Limit int
	// Country restricts results to ISO 3166-1 alpha-2 codes, comma separated
	Country string
	// Types restricts feature types, e.g. "poi", "address", "place"
	Types []string
	// BBox restricts results to minLon, minLat, maxLon, maxLat
	BBox *[4]float64
}

// LatLon is a coordinate pair.
type LatLon struct {
	Lat float64
	Lon float64
}

// FeatureCollection is the places endpoint response.
type FeatureCollection struct {
	Type        string    `json:"type"`
	Features    []Feature `json:"features"`
	Attribution string    `json:"attribution"`
}

// Feature is one geocoding match.
type Feature struct {
	ID         string     `json:"id"`
	PlaceType  []string   `json:"place_type"`
	Relevance  float64    `json:"relevance"`
	Text       string     `json:"text"`
	PlaceName  string     `json:"place_name"`
	Address    string     `json:"address,omitempty"`
	Center     []float64  `json:"center"`
	Properties Properties `json:"properties"`
	Context    []Context  `json:"context,omitempty"`
}

// Properties carries POI metadata.
type Properties struct {
	Category string `json:"category,omitempty"`
	Address  string `json:"address,omitempty"`
	Maki     string `json:"maki,omitempty"`
}

// Context is one enclosing area of a feature (neighborhood, place, region, country).
type Context struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code,omitempty"`
}

// Coordinates returns the feature center. ok is false when it is missing.
func (f Feature) Coordinates() (lat, lon float64, ok bool) {
	if len(f.Center) < 2 {
		return 0, 0, false
	}
	return f.Center[1], f.Center[0], true
}

// ContextNames lists the enclosing area names, most specific first.
func (f Feature) ContextNames() []string {
	out := make([]string, 0, len(f.Context))
	for _, c := range f.Context {
		if c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Category returns the first POI category, if any.
func (f Feature) Category() string {
	if f.Properties.Category != "" {
		head, _, _ := strings.Cut(f.Properties.Category, ",")
		return strings.TrimSpace(head)
	}
	return ""
}
