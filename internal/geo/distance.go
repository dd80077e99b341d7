// Package geo holds the great-circle and unit helpers shared by the result
// normalizer, the suggestion ranker and the upstream clients.
package geo

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// EarthRadiusKm is the mean Earth radius used for every distance in the module.
	EarthRadiusKm = 6371.0
	// EarthRadiusMeters is EarthRadiusKm expressed in meters.
	EarthRadiusMeters = EarthRadiusKm * 1000
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both axes are finite and inside their ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Rounded returns p with both axes rounded to the given number of decimal places.
func (p Point) Rounded(places int) Point {
	scale := math.Pow(10, float64(places))
	return Point{
		Lat: math.Round(p.Lat*scale) / scale,
		Lon: math.Round(p.Lon*scale) / scale,
	}
}

// CacheKey renders p rounded to 4 decimal places (~11 m), the granularity used
// for coordinate-keyed lookups such as reverse geocoding.
func (p Point) CacheKey() string {
	r := p.Rounded(4)
	return strconv.FormatFloat(r.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(r.Lon, 'f', 4, 64)
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Point) float64 {
	return HaversineKm(a, b) * 1000
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
