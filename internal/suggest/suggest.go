// Package suggest ranks geocoder candidates for the location search box.
//
// Candidates outside a radius around a reference point are discarded; the rest
// are ordered by how well their text matches the query, then by proximity.
package suggest

import (
	"math"
	"sort"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
)

// Candidate is one geocoder feature before ranking.
type Candidate struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Label    string     `json:"label"`
	Category string     `json:"category,omitempty"`
	Context  []string   `json:"context,omitempty"`
	Point    *geo.Point `json:"point,omitempty"`
}

// Suggestion is a ranked candidate ready for display.
type Suggestion struct {
	ID            string  `json:"id"`
	Label         string  `json:"label"`
	PrimaryText   string  `json:"primaryText"`
	SecondaryText string  `json:"secondaryText"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Category      string  `json:"category,omitempty"`
	DistanceKm    float64 `json:"distanceKm"`
	Score         int     `json:"score"`
}

// Point returns the suggestion coordinate.
func (s Suggestion) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// Scoring weights.
const (
	exactWeight  = 100
	prefixWeight = 10
	tokenWeight  = 1
)

// Rank filters candidates to maxRadiusKm around ref and orders them by score
// (descending) then distance (ascending). A blank query yields an empty slice.
func Rank(query string, candidates []Candidate, ref geo.Point, maxRadiusKm float64) []Suggestion {
	trimmed := strings.ToLower(strings.TrimSpace(query))
	if trimmed == "" {
		return []Suggestion{}
	}
	tokens := strings.Fields(trimmed)

	out := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		if c.Point == nil || !finite(c.Point.Lat) || !finite(c.Point.Lon) {
			continue
		}
		distance := geo.HaversineKm(ref, *c.Point)
		if distance > maxRadiusKm {
			continue
		}
		out = append(out, Suggestion{
			ID:            c.ID,
			Label:         c.Label,
			PrimaryText:   c.Name,
			SecondaryText: secondaryText(c),
			Lat:           c.Point.Lat,
			Lon:           c.Point.Lon,
			Category:      c.Category,
			DistanceKm:    distance,
			Score:         score(trimmed, tokens, c),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

func score(query string, tokens []string, c Candidate) int {
	name := strings.ToLower(c.Name)
	label := strings.ToLower(c.Label)

	total := 0
	if query == name {
		total += exactWeight
	}
	for _, tok := range tokens {
		if strings.HasPrefix(name, tok) || strings.HasPrefix(label, tok) {
			total += prefixWeight
		}
		if strings.Contains(name, tok) || strings.Contains(label, tok) {
			total += tokenWeight
		}
	}
	return total
}

func secondaryText(c Candidate) string {
	if c.Category != "" {
		return c.Category
	}
	return strings.Join(c.Context, ", ")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
