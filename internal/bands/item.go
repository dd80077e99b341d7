package bands

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
)

// Key aliases accepted on flat result items, in priority order.
var (
	coordinateKeys = []string{"coordinates", "coordinate", "location"}
	distanceKeys   = []string{"distanceMeters", "distance_m", "distance"}
	availableKeys  = []string{"availableSpaces", "available_spaces"}
	totalKeys      = []string{"totalSpaces", "total_spaces"}
	statusKeys     = []string{"statusDescription", "status_description", "status", "availability"}
	timestampKeys  = []string{"statusTimestamp", "status_timestamp", "lastupdated"}
	idKeys         = []string{"id", "kerbsideid", "bay_id"}
)

// extractBay maps one flat result item onto a Bay. ok is false when the item
// has no usable coordinate or distance.
func extractBay(raw json.RawMessage) (Bay, bool) {
	obj := asObject(raw)
	if obj == nil {
		return Bay{}, false
	}

	point, ok := itemPoint(obj)
	if !ok {
		return Bay{}, false
	}
	distance, ok := itemDistance(obj)
	if !ok {
		return Bay{}, false
	}

	bay := Bay{
		DistanceMeters:  distance,
		Lat:             point.Lat,
		Lon:             point.Lon,
		Name:            firstString(obj, "name"),
		ID:              firstString(obj, idKeys...),
		StatusTimestamp: firstString(obj, timestampKeys...),

		ZoneNumber:         passThrough(obj, "zoneNumber", "zone_number"),
		Street:             passThrough(obj, "street", "onstreet"),
		MaxStayLabel:       passThrough(obj, "maxStayLabel", "max_stay_label"),
		MaxStayMinutes:     passThrough(obj, "maxStayMinutes", "max_stay_minutes"),
		Metered:            passThrough(obj, "metered"),
		Price:              passThrough(obj, "price"),
		Address:            passThrough(obj, "address"),
		SegmentDescription: passThrough(obj, "segmentDescription", "segment_description"),
	}

	bay.AvailableSpaces = firstCount(obj, availableKeys...)
	bay.TotalSpaces = firstCount(obj, totalKeys...)
	bay.StatusDescription = deriveStatus(obj, bay.AvailableSpaces, bay.TotalSpaces)

	return bay, true
}

// deriveStatus prefers space counts over any status text on the item. Both
// counts must be present; a lone count leaves the status text in charge.
func deriveStatus(obj map[string]json.RawMessage, available, total *int) *string {
	if available != nil && total != nil {
		status := StatusOccupied
		if *available > 0 {
			status = StatusUnoccupied
		}
		return &status
	}
	return firstString(obj, statusKeys...)
}

func itemPoint(obj map[string]json.RawMessage) (geo.Point, bool) {
	for _, key := range coordinateKeys {
		if nested := asObject(obj[key]); nested != nil {
			if p, ok := pointFrom(nested); ok {
				return p, true
			}
		}
	}
	return pointFrom(obj)
}

// itemDistance resolves meters from the first distance alias that parses.
// Negative values are skipped in favour of later aliases.
func itemDistance(obj map[string]json.RawMessage) (float64, bool) {
	for _, key := range distanceKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if v, ok := asNumber(raw); ok {
			if v < 0 {
				continue
			}
			return v, true
		}
		if s, ok := asString(raw); ok {
			if v, ok := geo.ParseDistance(s); ok && v >= 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// pointFrom reads lat plus lon or lng from obj. Numeric strings are accepted.
func pointFrom(obj map[string]json.RawMessage) (geo.Point, bool) {
	lat, ok := numeric(obj["lat"])
	if !ok {
		return geo.Point{}, false
	}
	for _, key := range []string{"lon", "lng"} {
		if lon, ok := numeric(obj[key]); ok {
			return geo.Point{Lat: lat, Lon: lon}, true
		}
	}
	return geo.Point{}, false
}

func firstCount(obj map[string]json.RawMessage, keys ...string) *int {
	for _, key := range keys {
		v, ok := numeric(obj[key])
		if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			continue
		}
		n := int(v)
		return &n
	}
	return nil
}

// firstString returns the first non-empty alias as text. Numbers are rendered
// as written, so numeric ids survive.
func firstString(obj map[string]json.RawMessage, keys ...string) *string {
	for _, key := range keys {
		raw := bytes.TrimSpace(obj[key])
		if s, ok := asString(raw); ok {
			if strings.TrimSpace(s) == "" {
				continue
			}
			return &s
		}
		if _, ok := asNumber(raw); ok {
			s := string(raw)
			return &s
		}
	}
	return nil
}

func passThrough(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if v := nullToNil(obj[key]); v != nil {
			return v
		}
	}
	return nil
}

func asObject(raw json.RawMessage) map[string]json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func asNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func asString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// numeric accepts a JSON number or a string holding one.
func numeric(raw json.RawMessage) (float64, bool) {
	if v, ok := asNumber(raw); ok {
		return v, true
	}
	s, ok := asString(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// nullToNil maps an absent or JSON null value to nil.
func nullToNil(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
