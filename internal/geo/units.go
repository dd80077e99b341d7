package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var distancePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d*)?|\.\d+)\s*(m|km)?\s*$`)

// ParseDistance converts strings such as "123 m", "0.5km" or "80" into meters.
// Kilometer values are rounded to the nearest whole meter; bare numbers are
// taken as meters. ok is false when nothing parses to a finite number.
func ParseDistance(s string) (meters float64, ok bool) {
	m := distancePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if strings.EqualFold(m[2], "km") {
		return math.Round(value * 1000), true
	}
	return value, true
}

// FormatKm renders meters the way the legacy nearby endpoint did ("0.12 km").
func FormatKm(meters float64) string {
	return strconv.FormatFloat(meters/1000, 'f', 2, 64) + " km"
}
